package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassflow/shopify-shops-etl/internal/core/timeparse"
)

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategySnapshot, s)

	s, err = ParseStrategy("daily")
	require.NoError(t, err)
	assert.Equal(t, StrategyDaily, s)

	_, err = ParseStrategy("hourly")
	assert.Error(t, err)
}

func TestStrategy_Windows(t *testing.T) {
	p := timeparse.NewParser(nil, time.UTC)
	now := time.Date(2024, 5, 3, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		strategy Strategy
		start    time.Time
		want     []time.Time
	}{
		{
			name:     "snapshot ignores start",
			strategy: StrategySnapshot,
			start:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			want:     []time.Time{now},
		},
		{
			name:     "daily from two days ago",
			strategy: StrategyDaily,
			start:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
				now,
			},
		},
		{
			name:     "daily started today",
			strategy: StrategyDaily,
			start:    time.Date(2024, 5, 3, 1, 0, 0, 0, time.UTC),
			want:     []time.Time{now},
		},
		{
			name:     "daily start in the future",
			strategy: StrategyDaily,
			start:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:     []time.Time{now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy.Windows(tt.start, now, p))
		})
	}
}
