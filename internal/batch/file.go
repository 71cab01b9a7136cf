package batch

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// request is the on-disk batch document. A bare array of operations is
// also accepted.
type request struct {
	Operations []Operation `json:"operations"`
}

// ReadOperations decodes a batch document.
func ReadOperations(r io.Reader) ([]Operation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}

	var ops []Operation
	if err := json.Unmarshal(data, &ops); err == nil {
		return ops, nil
	}

	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return req.Operations, nil
}

// WriteResults encodes results as an indented JSON document.
func WriteResults(w io.Writer, results []ItemResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"results": results})
}
