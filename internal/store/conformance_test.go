package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	ID      string    `json:"_id,omitempty" bson:"_id,omitempty"`
	Name    string    `json:"name" bson:"name"`
	Status  string    `json:"status" bson:"status"`
	Skills  []string  `json:"skills" bson:"skills"`
	Vector  []float64 `json:"vector,omitempty" bson:"vector,omitempty"`
	Log     []string  `json:"log" bson:"log"`
	Created time.Time `json:"created" bson:"created"`
}

// runConformance exercises the Store contract against a fresh, empty store.
func runConformance(t *testing.T, s Store, collection string) {
	t.Helper()
	ctx := context.Background()

	t.Run("insert generates id", func(t *testing.T) {
		id, err := s.InsertOne(ctx, collection, testDoc{Name: "alice", Status: "pending", Skills: []string{"Go"}, Log: []string{}})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		var got testDoc
		require.NoError(t, s.FindOne(ctx, collection, ByID(id), &got))
		assert.Equal(t, "alice", got.Name)
		assert.Equal(t, []string{"Go"}, got.Skills)
	})

	t.Run("insert keeps id and rejects duplicates", func(t *testing.T) {
		id, err := s.InsertOne(ctx, collection, testDoc{ID: "fixed", Name: "bob", Status: "pending", Log: []string{}})
		require.NoError(t, err)
		assert.Equal(t, "fixed", id)

		_, err = s.InsertOne(ctx, collection, testDoc{ID: "fixed", Name: "bob again"})
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("find one not found", func(t *testing.T) {
		var got testDoc
		assert.ErrorIs(t, s.FindOne(ctx, collection, ByID("missing"), &got), ErrNotFound)
	})

	t.Run("find many in insertion order", func(t *testing.T) {
		_, err := s.InsertOne(ctx, collection, testDoc{Name: "carol", Status: "assigned", Log: []string{}})
		require.NoError(t, err)

		var pending []testDoc
		require.NoError(t, s.FindMany(ctx, collection, Filter{"status": "pending"}, &pending))
		require.Len(t, pending, 2)
		assert.Equal(t, "alice", pending[0].Name)
		assert.Equal(t, "bob", pending[1].Name)

		var all []testDoc
		require.NoError(t, s.FindMany(ctx, collection, nil, &all))
		assert.Len(t, all, 3)

		var none []testDoc
		require.NoError(t, s.FindMany(ctx, collection, Filter{"status": "closed"}, &none))
		assert.Empty(t, none)
	})

	t.Run("update set and push", func(t *testing.T) {
		ok, err := s.UpdateOne(ctx, collection, ByID("fixed"), Update{
			Set:  map[string]any{"skills": []string{"Go", "Redis"}, "vector": []float64{0.5, -0.5}},
			Push: map[string][]any{"log": {"first", "second"}},
		})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.UpdateOne(ctx, collection, ByID("fixed"), Update{Push: map[string][]any{"log": {"third"}}})
		require.NoError(t, err)
		assert.True(t, ok)

		var got testDoc
		require.NoError(t, s.FindOne(ctx, collection, ByID("fixed"), &got))
		assert.Equal(t, []string{"Go", "Redis"}, got.Skills)
		assert.Equal(t, []float64{0.5, -0.5}, got.Vector)
		assert.Equal(t, []string{"first", "second", "third"}, got.Log)
		assert.Equal(t, "bob", got.Name)
	})

	t.Run("conditional update applies once", func(t *testing.T) {
		cond := Filter{"_id": "fixed", "status": "pending"}
		ok, err := s.UpdateOne(ctx, collection, cond, Update{Set: map[string]any{"status": "assigned"}})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.UpdateOne(ctx, collection, cond, Update{Set: map[string]any{"status": "posting_required"}})
		require.NoError(t, err)
		assert.False(t, ok)

		var got testDoc
		require.NoError(t, s.FindOne(ctx, collection, ByID("fixed"), &got))
		assert.Equal(t, "assigned", got.Status)
	})

	t.Run("update no match", func(t *testing.T) {
		ok, err := s.UpdateOne(ctx, collection, ByID("missing"), Update{Set: map[string]any{"status": "x"}})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
