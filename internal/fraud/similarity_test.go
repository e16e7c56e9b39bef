package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the product is great", "the product is great", 1.0},
		{"disjoint", "alpha beta gamma", "delta epsilon zeta", 0.0},
		{"case and punctuation insensitive", "Great product!", "great, product", 1.0},
		{"reordered tokens", "fast cheap good", "good fast cheap", 1.0},
		{"both empty", "", "", 0.0},
		{"one empty", "something", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTokenSimilarity_PartialOverlap(t *testing.T) {
	// Five tokens, four shared: intersection 4 over union 6.
	sim := TokenSimilarity("the quick brown fox jumps", "the quick brown fox leaps")
	assert.InDelta(t, 4.0/6.0, sim, 1e-9)
}

func TestTokenSimilarity_NearDuplicateExceedsThreshold(t *testing.T) {
	// Twenty distinct tokens with a single word swapped, the shape of a
	// pasted answer with a minor edit: 19/21 ≈ 0.905.
	original := "honestly the checkout flow felt smooth although shipping estimates were vague and support responses arrived quite late during holidays"
	edited := "honestly the checkout flow felt smooth although shipping estimates were vague and support responses arrived quite late during weekends"

	sim := TokenSimilarity(original, edited)
	assert.GreaterOrEqual(t, sim, 0.85)
	assert.Less(t, sim, 1.0)
}
