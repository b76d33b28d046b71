package semantic

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDims is the vector length of HashEmbedder when none is given.
const DefaultHashDims = 256

// HashEmbedder is a local bag-of-words embedder using the hashing trick.
// It needs no network and is deterministic, which makes it the default for
// development and tests. Similarity is lexical, not semantic.
type HashEmbedder struct {
	Dims int
}

func (h HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dims := h.Dims
	if dims <= 0 {
		dims = DefaultHashDims
	}
	vec := make([]float32, dims)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		f := fnv.New64a()
		f.Write([]byte(w))
		sum := f.Sum64()
		// The top bit picks a sign so collisions tend to cancel.
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vec[sum%uint64(dims)] += sign
	}
	normalize(vec)
	return vec, nil
}

// Cosine returns the cosine similarity of a and b, or 0 if either is zero.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}
