package inspection

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

// CampaignDocument is the cloud-pushed campaign JSON shape, following the
// conditionBasedCollectionScheme fields of the original AWS IoT FleetWise
// campaign document.
type CampaignDocument struct {
	CampaignID       string              `json:"campaignID"`
	CollectionScheme collectionSchemeDoc `json:"collectionScheme"`
	SignalsToCollect []signalToCollectDoc `json:"signalsToCollect"`
	MinimumTriggerMs uint64              `json:"minimumTriggerIntervalMs"`
	ExpiryTimeUnixMs uint64              `json:"expiryTimeMs"`
	Compression      string              `json:"compression"`
}

type collectionSchemeDoc struct {
	ConditionBased conditionBasedSchemeDoc `json:"conditionBasedCollectionScheme"`
}

type conditionBasedSchemeDoc struct {
	ConditionLanguageVersion uint8  `json:"conditionLanguageVersion"`
	Expression               string `json:"expression"`
	TriggerMode              string `json:"triggerMode"`
}

type signalToCollectDoc struct {
	Name           string `json:"name"`
	SampleWindowMs uint64 `json:"sampleWindowMs"`
	SampleCount    int    `json:"sampleCount"`
}

// catalogResolver adapts a decode.SignalCatalog-shaped map to the parser's
// signalResolver interface without internal/inspection depending on
// internal/decode.
type catalogResolver map[string]domain.SignalID

func (c catalogResolver) Resolve(name string) (uint32, bool) {
	id, ok := c[name]
	return uint32(id), ok
}

// CompileCampaign parses raw JSON and compiles its expression into an AST,
// resolving signal names through catalog and assigning each custom_function
// call site a stable invocation id derived from the campaign id and the
// call's textual position (so identities survive redundant recompiles of
// the same document).
func CompileCampaign(raw []byte, catalog map[string]domain.SignalID) (*Campaign, error) {
	var doc CampaignDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("campaign document: %w", err)
	}
	return compileCampaignDoc(doc, catalogResolver(catalog))
}

func compileCampaignDoc(doc CampaignDocument, resolver signalResolver) (*Campaign, error) {
	if doc.CampaignID == "" {
		return nil, fmt.Errorf("campaign document missing campaignID")
	}
	expr := doc.CollectionScheme.ConditionBased.Expression
	if expr == "" {
		return nil, fmt.Errorf("campaign %s: empty expression", doc.CampaignID)
	}

	nextInvoke := func(pos int) InvocationID {
		return invocationIDFor(doc.CampaignID, pos)
	}

	root, err := parseExpression(expr, resolver, nextInvoke)
	if err != nil {
		return nil, fmt.Errorf("campaign %s: %w", doc.CampaignID, err)
	}

	c := &Campaign{
		ID:          doc.CampaignID,
		Root:        root,
		TriggerMode: parseTriggerMode(doc.CollectionScheme.ConditionBased.TriggerMode),
		Windows:     make(map[domain.SignalID]WindowSpec),
	}

	for _, s := range doc.SignalsToCollect {
		id, ok := resolver.Resolve(s.Name)
		if !ok {
			return nil, fmt.Errorf("campaign %s: unknown collect signal %q", doc.CampaignID, s.Name)
		}
		sid := domain.SignalID(id)
		c.CollectSignals = append(c.CollectSignals, sid)
		if s.SampleWindowMs > 0 || s.SampleCount > 0 {
			c.Windows[sid] = WindowSpec{
				TimeSpan:    time.Duration(s.SampleWindowMs) * time.Millisecond,
				SampleCount: s.SampleCount,
			}
		}
	}

	if doc.MinimumTriggerMs > 0 {
		c.MinInterTriggerInterval = time.Duration(doc.MinimumTriggerMs) * time.Millisecond
	}
	if doc.ExpiryTimeUnixMs > 0 {
		c.Expiry = time.UnixMilli(int64(doc.ExpiryTimeUnixMs))
	}

	c.invocationIDs = collectInvocationIDs(root)
	return c, nil
}

func parseTriggerMode(s string) TriggerMode {
	if s == "ALWAYS" {
		return TriggerAlways
	}
	return TriggerRisingEdge
}

// invocationIDFor derives a deterministic invocation id from the campaign
// id and the call site's textual offset using a uuid v5-style namespace
// hash, so recompiling the same document yields the same identities
// without needing to persist a counter anywhere.
func invocationIDFor(campaignID string, pos int) InvocationID {
	ns := uuid.NewSHA1(uuid.Nil, []byte(campaignID))
	var posBuf [8]byte
	binary.BigEndian.PutUint64(posBuf[:], uint64(pos))
	h := sha1.New()
	h.Write(ns[:])
	h.Write(posBuf[:])
	sum := h.Sum(nil)
	return InvocationID(binary.BigEndian.Uint64(sum[:8]))
}

func collectInvocationIDs(root *Node) []InvocationID {
	var ids []InvocationID
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == NodeCustomFunc {
			ids = append(ids, n.InvocationID)
		}
		walk(n.Left)
		walk(n.Right)
		walk(n.Operand)
		walk(n.Cond)
		walk(n.Then)
		walk(n.Else)
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(root)
	return ids
}
