package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateJSON checks raw against schema. A nil schema accepts anything.
// Failures are *ErrInvalidResponse carrying raw.
func ValidateJSON(schema *Schema, raw json.RawMessage) error {
	return validateResponse(schema, raw)
}

func validateResponse(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("not JSON: %w", err)}
	}

	compiled, err := schema.compile()
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: err}
	}
	if err := compiled.Validate(doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("%s: %w", schema.Name, err)}
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		// Round-trip through JSON so Go literals such as []string become
		// the generic values the compiler walks.
		def, err := json.Marshal(s.Definition)
		if err != nil {
			s.compileErr = fmt.Errorf("encode schema %q: %w", s.Name, err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
		if err != nil {
			s.compileErr = fmt.Errorf("decode schema %q: %w", s.Name, err)
			return
		}

		url := "mem://aptiq/" + s.Name + ".json"
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, doc); err != nil {
			s.compileErr = fmt.Errorf("load schema %q: %w", s.Name, err)
			return
		}
		s.compiled, s.compileErr = c.Compile(url)
		if s.compileErr != nil {
			s.compileErr = fmt.Errorf("compile schema %q: %w", s.Name, s.compileErr)
		}
	})
	return s.compiled, s.compileErr
}
