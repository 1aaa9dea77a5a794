package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ridgeline-iot/canopy-edge/pkg/canopy"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("canopy-edge %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to edge configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// No MQTT/transport client ships in this module — the uplink boundary
	// is an opaque external collaborator. This default publisher just logs
	// what would have been sent; swap it for a real one via canopy.WithPublisher.
	publisher := canopy.NewCallbackPublisher(func(p canopy.CollectionPayload) error {
		log.Printf("collection fired: campaign=%s signals=%d", p.CampaignID, len(p.Signals))
		return nil
	})

	flow, err := canopy.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := flow.Config()

	dict, catalog, err := canopy.LoadDictionaryFile(cfg.Decoder.ManifestPath)
	if err != nil {
		return fmt.Errorf("load decoder manifest: %w", err)
	}
	campaign, err := canopy.LoadCampaignFile(cfg.Campaigns.DocumentPath, catalog)
	if err != nil {
		return fmt.Errorf("load campaign document: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.
		StreamIN(canopy.StreamInDictionary(dict), canopy.StreamInCampaigns([]*canopy.Campaign{campaign})).
		Run(ctx, canopy.StreamOutPublisher(publisher))
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := canopy.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"canopy_signals_decoded_total": 0,
		"canopy_queue_length":          0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] signals_decoded=%f queue=%f\n",
		time.Now().Format(time.RFC3339),
		targets["canopy_signals_decoded_total"],
		targets["canopy_queue_length"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`canopy-edge CLI

Usage:
  canopy-edge <command> [flags]

Commands:
  run        Start the edge runtime using the provided config (default)
  validate   Load and validate a config file without starting the runtime
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  canopy-edge run -config ./data/config.yaml
  canopy-edge validate -config ./data/config.yaml
  canopy-edge stats -url http://localhost:9100/metrics -interval 1s
`)
}
