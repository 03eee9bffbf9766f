package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const actionSchemaURL = "https://cosanostra.game/schemas/action.schema.json"

//go:embed schemas/action.schema.json
var actionSchema []byte

// ErrInvalidMessage wraps every schema or decoding failure.
var ErrInvalidMessage = errors.New("invalid message")

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(actionSchemaURL, bytes.NewReader(actionSchema)); err != nil {
			compileErr = fmt.Errorf("failed to add action schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(actionSchemaURL)
	})
	return compiled, compileErr
}

// ParseAction validates raw against the action schema and decodes it.
func ParseAction(raw []byte) (ActionMessage, error) {
	var msg ActionMessage
	s, err := schema()
	if err != nil {
		return msg, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := s.Validate(doc); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, nil
}
