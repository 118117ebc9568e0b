package tableio

import (
	"encoding/json"
	"fmt"
	"os"

	"bolddenoise/pkg/confounds"
)

// WriteSidecar writes a JSON metadata dictionary next to an output file.
func WriteSidecar(path string, meta map[string]any) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

// ReadComponentMetadata reads the confounds JSON sidecar that describes
// CompCor components. Entries that are not CompCor components are kept
// with zero values and are ignored by selection.
func ReadComponentMetadata(path string) (confounds.ComponentMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read component metadata: %w", err)
	}
	var meta confounds.ComponentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}
