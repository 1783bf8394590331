// Package embedding provides deterministic text embeddings and vector similarity.
//
// The embedder is a reproducible surrogate for a trained model: every output
// position is derived from a cryptographic hash of the normalized text and the
// position index, so the same text always yields the same vector and no network
// access is needed.
package embedding

import (
	"context"
	"encoding/binary"
	"math"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Dimensions is the nominal length of every embedding vector.
const Dimensions = 768

// Vector is a fixed-length embedding.
type Vector []float64

// Embedder turns free text into a vector.
type Embedder interface {
	// Embed returns the embedding for text. Blank text yields the zero vector.
	Embed(ctx context.Context, text string) Vector
	// Dimensions returns the length of vectors produced by Embed.
	Dimensions() int
}

// HashEmbedder derives each vector position from BLAKE2b-256(text, position).
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates an embedder producing vectors of the nominal length.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{dims: Dimensions}
}

// NewHashEmbedderWithDimensions creates an embedder with a custom vector length.
// Non-positive values fall back to Dimensions.
func NewHashEmbedderWithDimensions(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = Dimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the vector length.
func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

// Embed returns the L2-normalized hash embedding of text.
func (e *HashEmbedder) Embed(_ context.Context, text string) Vector {
	normalized := Normalize(text)
	if normalized == "" {
		return Zero(e.dims)
	}

	// normalized text, a separator byte, then a 4-byte big-endian position
	buf := make([]byte, len(normalized)+5)
	copy(buf, normalized)
	tail := buf[len(normalized)+1:]

	vec := make(Vector, e.dims)
	for i := 0; i < e.dims; i++ {
		binary.BigEndian.PutUint32(tail, uint32(i))
		sum := blake2b.Sum256(buf)
		u := binary.BigEndian.Uint64(sum[:8])
		vec[i] = float64(u)/math.MaxUint64*2 - 1
	}

	return L2Normalize(vec)
}

// Normalize case-folds and trims text before hashing.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Zero returns the all-zero vector of length n.
func Zero(n int) Vector {
	return make(Vector, n)
}

// L2Normalize scales v in place to unit length and returns it.
// A zero vector is returned unchanged.
func L2Normalize(v Vector) Vector {
	norm := Norm(v)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Norm returns the Euclidean length of v.
func Norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// IsZero reports whether v is empty or all zeros.
func IsZero(v Vector) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// JoinSkills renders a skill list the way it is embedded.
func JoinSkills(skills []string) string {
	return strings.Join(skills, ", ")
}
