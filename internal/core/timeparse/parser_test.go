package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser(nil, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "rfc3339",
			input: "2022-03-04T09:05:03Z",
			want:  time.Date(2022, 3, 4, 9, 5, 3, 0, time.UTC),
		},
		{
			name:  "singer offset without colon",
			input: "2021-01-01T00:00:00+0000",
			want:  time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "date only",
			input: "2021-06-15",
			want:  time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "legacy padded hour with UTC",
			input: "2022-03-04  9:05:03 UTC",
			want:  time.Date(2022, 3, 4, 9, 5, 3, 0, time.UTC),
		},
		{
			name:  "legacy with CET",
			input: "2022-03-04 10:05:03 CET",
			want:  time.Date(2022, 3, 4, 9, 5, 3, 0, time.UTC),
		},
		{
			name:  "legacy with half hour zone",
			input: "2022-03-04 15:05:03 IST",
			want:  time.Date(2022, 3, 4, 9, 35, 3, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParser_ParseErrors(t *testing.T) {
	p := NewParser(nil, nil)

	for _, input := range []string{"", "   ", "yesterday", "2022-03-04 10:05:03 XYZT", "2022-03-04 10:05:03 +01"} {
		t.Run(input, func(t *testing.T) {
			_, err := p.Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestParser_CustomOffsets(t *testing.T) {
	p := NewParser(Offsets{"HQ": 2 * time.Hour}, time.UTC)

	got, err := p.Parse("2022-03-04 12:00:00 HQ")
	require.NoError(t, err)
	assert.Equal(t, 10, got.UTC().Hour())

	_, err = p.Parse("2022-03-04 12:00:00 UTC")
	assert.Error(t, err, "custom table replaces the default one")
}

func TestParser_StartOfDay(t *testing.T) {
	amsterdam := time.FixedZone("CET", 3600)
	p := NewParser(nil, amsterdam)

	day := p.StartOfDay(time.Date(2022, 3, 4, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2022, 3, 5, 0, 0, 0, 0, amsterdam), day)
}

func TestDefaultOffsets(t *testing.T) {
	offsets := DefaultOffsets()

	d, ok := offsets.Lookup("ACWST")
	require.True(t, ok)
	assert.Equal(t, 8*time.Hour+45*time.Minute, d)

	d, ok = offsets.Lookup("NUT")
	require.True(t, ok)
	assert.Equal(t, -11*time.Hour, d)

	_, ok = offsets.Lookup("nope")
	assert.False(t, ok)
}
