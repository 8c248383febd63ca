package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Decode reads a request written as YAML or JSON. Unknown keys are errors.
func Decode(data []byte) (*Request, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var req Request
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty request")
		}
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}
