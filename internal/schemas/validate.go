// Package schemas checks oracle payloads against the embedded JSON Schemas.
package schemas

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	rootschemas "github.com/jonathan/taskmatch/schemas"
)

// Violation is one schema failure at a dotted field path.
type Violation struct {
	Field   string
	Message string
}

// ShapeError means a payload parsed but does not have the documented shape.
type ShapeError struct {
	Payload    string
	Violations []Violation
}

func (e *ShapeError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return fmt.Sprintf("%s payload does not match schema: %s", e.Payload, strings.Join(parts, "; "))
}

// CompileError means the named schema is missing or itself invalid.
type CompileError struct {
	Payload string
	Cause   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("schema %s unavailable: %v", e.Payload, e.Cause)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErrs map[string]error
)

// compileAll builds every embedded schema on first use.
func compileAll() {
	compiled = make(map[string]*gojsonschema.Schema, len(rootschemas.All))
	compileErrs = make(map[string]error)
	for _, payload := range rootschemas.All {
		doc, err := rootschemas.Load(payload)
		if err == nil {
			var s *gojsonschema.Schema
			s, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
			compiled[payload] = s
		}
		if err != nil {
			compileErrs[payload] = err
		}
	}
}

func lookup(payload string) (*gojsonschema.Schema, error) {
	compileOnce.Do(compileAll)
	if err, ok := compileErrs[payload]; ok {
		return nil, &CompileError{Payload: payload, Cause: err}
	}
	s, ok := compiled[payload]
	if !ok {
		return nil, &CompileError{Payload: payload, Cause: fmt.Errorf("no such payload")}
	}
	return s, nil
}

// Validate checks doc against the schema for payload. A doc that is not JSON
// is a ShapeError on (root).
func Validate(payload, doc string) error {
	s, err := lookup(payload)
	if err != nil {
		return err
	}

	result, err := s.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return &ShapeError{Payload: payload, Violations: []Violation{{Field: "(root)", Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}

	shape := &ShapeError{Payload: payload}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		shape.Violations = append(shape.Violations, Violation{Field: field, Message: desc.Description()})
	}
	return shape
}

// Validator binds Validate to payload for llm.DecodeFirstObject and llm.DecodeArray.
func Validator(payload string) func(string) error {
	return func(doc string) error {
		return Validate(payload, doc)
	}
}
