package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierForScore(t *testing.T) {
	tests := []struct {
		score int
		want  Tier
	}{
		{100, TierGreen},
		{85, TierGreen},
		{80, TierGreen},
		{79, TierOrange},
		{60, TierOrange},
		{59, TierRed},
		{30, TierRed},
		{0, TierRed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForScore(tt.score), "score %d", tt.score)
	}
}
