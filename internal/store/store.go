// Package store provides the document store the triage pipeline persists to.
// Documents are Go structs carrying both json and bson tags with a string "_id".
// Backends: in-process memory, PostgreSQL (JSONB) and MongoDB.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Filter matches documents whose top-level fields equal every given value.
// An empty filter matches every document in the collection.
type Filter map[string]any

// ByID is a filter on the document id.
func ByID(id string) Filter {
	return Filter{"_id": id}
}

// Update describes a single-document patch.
type Update struct {
	// Set overwrites top-level fields.
	Set map[string]any
	// Push appends values to top-level array fields, creating them when absent.
	Push map[string][]any
}

// Store is document read/write with equality filters. Each call is atomic for
// the single document it touches; there are no multi-document transactions.
type Store interface {
	// FindOne decodes the first matching document into out, or returns ErrNotFound.
	FindOne(ctx context.Context, collection string, filter Filter, out any) error
	// FindMany decodes every matching document, in insertion order, into out (a pointer to a slice).
	FindMany(ctx context.Context, collection string, filter Filter, out any) error
	// InsertOne stores doc and returns its id, generating one when doc has no "_id".
	InsertOne(ctx context.Context, collection string, doc any) (string, error)
	// UpdateOne patches the first matching document and reports whether one matched.
	UpdateOne(ctx context.Context, collection string, filter Filter, update Update) (bool, error)
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close(ctx context.Context) error
}

// toDocument converts doc into a JSON-shaped map and ensures it has an id.
func toDocument(doc any) (map[string]any, string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", fmt.Errorf("document must be a JSON object: %w", err)
	}
	id, _ := m["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		m["_id"] = id
	}
	return m, id, nil
}

// normalize maps v to its JSON representation so values of different Go types
// (typed string constants, float32 vectors, time.Time) compare and store alike.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeInto re-decodes a JSON-shaped value into out.
func decodeInto(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}
