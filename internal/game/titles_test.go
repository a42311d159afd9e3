package game

import (
	"slices"
	"strings"
	"testing"

	"github.com/scythe504/wavelength-backend/internal/random"
	"github.com/stretchr/testify/assert"
)

func TestTitleTier(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		players int
		want    string
	}{
		{"zero wins", 0, 4, TierWinner},
		{"positive", 250, 4, TierWinner},
		{"slightly negative", -1, 4, TierNormal},
		{"below -40 still normal", -60, 4, TierNormal},
		{"abnormal edge", -80, 4, TierAbnormal},
		{"danger edge", -120, 4, TierDanger},
		{"decorated edge", -160, 4, TierDecorated},
		{"scale grows with roster", -160, 8, TierAbnormal},
		{"scale shrinks with roster", -40, 2, TierAbnormal},
		{"empty roster treated as one", -40, 0, TierDecorated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleTier(tt.score, tt.players))
		})
	}
}

func TestTitleDrawsFromTierPool(t *testing.T) {
	s := NewScorer(random.New(9))
	for i := 0; i < 50; i++ {
		assert.Contains(t, winnerWords, s.Title(10, 4))
		assert.Contains(t, normalWords, s.Title(-10, 4))
		assert.Contains(t, abnormalWords, s.Title(-90, 4))
		assert.Contains(t, dangerWords, s.Title(-130, 4))

		decorated := s.Title(-500, 4)
		assert.True(t, slices.ContainsFunc(decoratorWords, func(prefix string) bool {
			return strings.HasPrefix(decorated, prefix) && slices.Contains(dangerWords, strings.TrimPrefix(decorated, prefix))
		}), decorated)
	}
}
