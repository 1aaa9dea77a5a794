package canopy

import (
	"fmt"
	"os"

	"github.com/ridgeline-iot/canopy-edge/internal/decode"
	"github.com/ridgeline-iot/canopy-edge/internal/inspection"
)

// SignalCatalog maps a signal's fully-qualified name (as declared by the
// decoder manifest) to the id campaign expressions and collect-sets
// reference.
type SignalCatalog = decode.SignalCatalog

// LoadDictionaryFile reads a decoder manifest from path and compiles it
// into a DecoderDictionary plus the signal name catalog campaign documents
// are compiled against. This, and LoadCampaignFile, are CLI/demo
// front-end concerns only — the engine itself never touches a filesystem
// path, only in-memory values (see WithDictionary/WithCampaigns).
func LoadDictionaryFile(path string) (*DecoderDictionary, SignalCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read decoder manifest: %w", err)
	}
	return decode.ParseManifest(raw)
}

// LoadCampaignFile reads a single campaign document from path and compiles
// it against catalog (as produced by LoadDictionaryFile).
func LoadCampaignFile(path string, catalog SignalCatalog) (*Campaign, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaign document: %w", err)
	}
	return inspection.CompileCampaign(raw, catalog)
}
