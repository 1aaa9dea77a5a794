package canopy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridgeline-iot/canopy-edge/internal/adapters/distributor"
	"github.com/ridgeline-iot/canopy-edge/internal/adapters/observability"
	"github.com/ridgeline-iot/canopy-edge/internal/adapters/queue"
	"github.com/ridgeline-iot/canopy-edge/internal/app/pipeline"
	"github.com/ridgeline-iot/canopy-edge/internal/decode"
	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/inspection"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	publisher     UplinkPublisher
	observability Observability
	customFuncs   map[string]CustomFunction
	dictionary    *DecoderDictionary
	campaigns     []*Campaign
}

// WithPublisher injects the uplink publisher that moves a fired
// collection's payload off the device (cloud credentials and transport
// are explicitly out of scope for this module — wire a real
// implementation here).
func WithPublisher(p UplinkPublisher) RuntimeOption {
	return func(o *runtimeOverrides) { o.publisher = p }
}

// WithObservability plugs in a custom observability backend in place of
// the default Prometheus one.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) { o.observability = obs }
}

// WithCustomFunction registers (or overrides) one named custom function
// beyond the built-ins (abs, ceil, floor, min, max, pow, log,
// MULTI_RISING_EDGE_TRIGGER).
func WithCustomFunction(name string, fn CustomFunction) RuntimeOption {
	return func(o *runtimeOverrides) {
		if o.customFuncs == nil {
			o.customFuncs = make(map[string]CustomFunction)
		}
		o.customFuncs[name] = fn
	}
}

// WithDictionary installs the initial decoder dictionary. Without this
// option the runtime starts with no active dictionary and every frame is
// dropped until one is installed via Runtime.SwapDictionary.
func WithDictionary(d *DecoderDictionary) RuntimeOption {
	return func(o *runtimeOverrides) { o.dictionary = d }
}

// WithCampaigns installs the initial active campaign set.
func WithCampaigns(campaigns []*Campaign) RuntimeOption {
	return func(o *runtimeOverrides) { o.campaigns = campaigns }
}

// Runtime wires the ingest -> inspection -> uplink pipelines together and
// exposes simple lifecycle hooks for embedding the engine inside any Go
// service.
type Runtime struct {
	cfg    *Config
	policy ports.Policy
	obs    ports.Observability

	dictHandle *decode.DictionaryHandle
	consumer   *decode.Consumer
	registry   *inspection.CustomFuncRegistry
	engine     *inspection.Engine

	ingestDist *distributor.Distributor[domain.CollectedDataFrame]
	inspectQ   *queue.MemQueue[domain.CollectedDataFrame]
	uplinkQ    *queue.MemQueue[ports.CollectionPayload]

	publisher UplinkPublisher

	frames        chan decode.RawFrame
	metricsSrv    *http.Server
	gaugeStopCh   chan struct{}
	inspectStopCh chan struct{}
}

// NewRuntime bootstraps the default adapters (Prometheus observability,
// bounded in-memory queues) and compiles the campaign/custom-function
// registry. Callers must supply an UplinkPublisher via WithPublisher —
// there is no default, since moving data off the device is explicitly an
// opaque external collaborator.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	if overrides.publisher == nil {
		return nil, fmt.Errorf("an uplink publisher is required (see WithPublisher)")
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	registry := inspection.NewCustomFuncRegistry()
	for name, fn := range overrides.customFuncs {
		registry.Register(name, fn)
	}

	dictHandle := decode.NewDictionaryHandle()
	if overrides.dictionary != nil {
		dictHandle.Store(overrides.dictionary)
	}
	consumer := decode.NewConsumer(dictHandle, obs)

	uplinkQ := queue.NewMemQueue[ports.CollectionPayload](cfg.Policy.MaxQueueLen, cfg.Policy.OnQueueFull)
	engine := inspection.NewEngine(cfg.Policy, obs, registry, uplinkQ)
	if len(overrides.campaigns) > 0 {
		engine.LoadCampaigns(overrides.campaigns)
	}

	inspectQ := queue.NewMemQueue[domain.CollectedDataFrame](cfg.Policy.MaxQueueLen, cfg.Policy.OnQueueFull)
	ingestDist := distributor.New[domain.CollectedDataFrame]()
	ingestDist.Register(inspectQ)

	return &Runtime{
		cfg:           cfg,
		policy:        cfg.Policy,
		obs:           obs,
		dictHandle:    dictHandle,
		consumer:      consumer,
		registry:      registry,
		engine:        engine,
		ingestDist:    ingestDist,
		inspectQ:      inspectQ,
		uplinkQ:       uplinkQ,
		publisher:     overrides.publisher,
		frames:        make(chan decode.RawFrame, cfg.Policy.MaxQueueLen),
		inspectStopCh: make(chan struct{}),
	}, nil
}

// Frames returns the channel bus-side producers (e.g. internal/adapters/
// cansocket) should send decode.RawFrame values on.
func (r *Runtime) Frames() chan<- decode.RawFrame {
	return r.frames
}

// SwapDictionary atomically installs a new decoder dictionary, taking
// effect on the very next frame processed.
func (r *Runtime) SwapDictionary(d *DecoderDictionary) {
	r.dictHandle.Store(d)
}

// LoadCampaigns atomically replaces the active campaign set.
func (r *Runtime) LoadCampaigns(campaigns []*Campaign) {
	r.engine.LoadCampaigns(campaigns)
}

// Start launches the ingest, inspection, and uplink pipelines on their own
// goroutines, plus the metrics HTTP server. It returns immediately; call
// Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}

	go pipeline.RunIngestPipeline(r.frames, r.consumer, r.ingestDist, r.obs)
	go pipeline.RunInspectionPipeline(r.inspectStopCh, r.inspectQ, r.engine, r.policy)
	go pipeline.RunUplinkPipeline(r.uplinkQ, r.publisher, r.policy, r.obs)

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is
// cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the metrics server, signals the inspection worker to
// stop, and closes the frame intake channel.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
	}

	if r.inspectStopCh != nil {
		close(r.inspectStopCh)
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	close(r.frames)
	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge("queue_length", float64(r.inspectQ.Len()))
		}
	}
}
