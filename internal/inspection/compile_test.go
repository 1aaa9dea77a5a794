package inspection

import (
	"testing"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

func testCatalog() map[string]domain.SignalID {
	return map[string]domain.SignalID{
		"Vehicle.EngineSpeed": 1,
		"Vehicle.Brake":       2,
	}
}

const testCampaignJSON = `{
  "campaignID": "camp-1",
  "collectionScheme": {
    "conditionBasedCollectionScheme": {
      "conditionLanguageVersion": 1,
      "expression": "Vehicle.EngineSpeed > 1000 && Vehicle.Brake == true",
      "triggerMode": "RISING_EDGE"
    }
  },
  "signalsToCollect": [
    {"name": "Vehicle.EngineSpeed"},
    {"name": "Vehicle.Brake", "sampleWindowMs": 5000}
  ],
  "minimumTriggerIntervalMs": 2000
}`

func TestCompileCampaignBasic(t *testing.T) {
	c, err := CompileCampaign([]byte(testCampaignJSON), testCatalog())
	if err != nil {
		t.Fatalf("CompileCampaign returned error: %v", err)
	}
	if c.ID != "camp-1" {
		t.Fatalf("expected campaign id camp-1, got %s", c.ID)
	}
	if c.TriggerMode != TriggerRisingEdge {
		t.Fatalf("expected rising-edge trigger mode")
	}
	if len(c.CollectSignals) != 2 {
		t.Fatalf("expected 2 collect signals, got %d", len(c.CollectSignals))
	}
	if c.MinInterTriggerInterval.Milliseconds() != 2000 {
		t.Fatalf("expected 2000ms min interval, got %v", c.MinInterTriggerInterval)
	}
	if c.Root == nil || c.Root.Kind != NodeLogical {
		t.Fatalf("expected root to be a logical AND node")
	}
}

func TestCompileCampaignUnknownSignalRejected(t *testing.T) {
	doc := `{
		"campaignID": "camp-2",
		"collectionScheme": {"conditionBasedCollectionScheme": {"expression": "Vehicle.Unknown > 1"}}
	}`
	if _, err := CompileCampaign([]byte(doc), testCatalog()); err == nil {
		t.Fatalf("expected error for unresolved signal name")
	}
}

func TestCompileCampaignWindowFuncAndCustomFunc(t *testing.T) {
	doc := `{
		"campaignID": "camp-3",
		"collectionScheme": {"conditionBasedCollectionScheme": {
			"expression": "window.average(Vehicle.EngineSpeed, 10) > custom_function(\"abs\", -5)"
		}},
		"signalsToCollect": [{"name": "Vehicle.EngineSpeed"}]
	}`
	c, err := CompileCampaign([]byte(doc), testCatalog())
	if err != nil {
		t.Fatalf("CompileCampaign returned error: %v", err)
	}
	if c.Root.Kind != NodeCompare {
		t.Fatalf("expected top node to be a comparison")
	}
	if c.Root.Left.Kind != NodeWindowFunc || c.Root.Left.WindowKind != WindowAverage {
		t.Fatalf("expected left operand to be window.average, got %+v", c.Root.Left)
	}
	if c.Root.Right.Kind != NodeCustomFunc || c.Root.Right.FuncName != "abs" {
		t.Fatalf("expected right operand to be custom_function(abs), got %+v", c.Root.Right)
	}
	if len(c.invocationIDs) != 1 {
		t.Fatalf("expected 1 invocation id recorded, got %d", len(c.invocationIDs))
	}
}

func TestCompileCampaignDeterministicInvocationIDs(t *testing.T) {
	doc := `{
		"campaignID": "camp-4",
		"collectionScheme": {"conditionBasedCollectionScheme": {
			"expression": "custom_function(\"abs\", Vehicle.EngineSpeed) > 0"
		}}
	}`
	c1, err := CompileCampaign([]byte(doc), testCatalog())
	if err != nil {
		t.Fatalf("first compile failed: %v", err)
	}
	c2, err := CompileCampaign([]byte(doc), testCatalog())
	if err != nil {
		t.Fatalf("second compile failed: %v", err)
	}
	if c1.Root.Left.InvocationID != c2.Root.Left.InvocationID {
		t.Fatalf("expected stable invocation id across recompiles, got %v vs %v",
			c1.Root.Left.InvocationID, c2.Root.Left.InvocationID)
	}
}

func TestCompileCampaignConditionalAndArithmetic(t *testing.T) {
	doc := `{
		"campaignID": "camp-5",
		"collectionScheme": {"conditionBasedCollectionScheme": {
			"expression": "(Vehicle.EngineSpeed + 1) * 2 > 10 ? true : false"
		}}
	}`
	c, err := CompileCampaign([]byte(doc), testCatalog())
	if err != nil {
		t.Fatalf("CompileCampaign returned error: %v", err)
	}
	if c.Root.Kind != NodeConditional {
		t.Fatalf("expected conditional root, got %v", c.Root.Kind)
	}
}
