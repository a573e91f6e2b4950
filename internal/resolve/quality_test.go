package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in   string
		want Quality
	}{
		{"source", QualitySource},
		{"HD", QualityHD},
		{" sd ", QualitySD},
		{"Auto", QualityAuto},
		{"", QualityAuto},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuality(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQuality_Suggestion(t *testing.T) {
	_, err := ParseQuality("sourse")
	require.ErrorIs(t, err, ErrUnknownQuality)
	assert.Contains(t, err.Error(), `did you mean "source"`)
}

func TestParseQuality_NoSuggestion(t *testing.T) {
	_, err := ParseQuality("xyzzy")
	require.ErrorIs(t, err, ErrUnknownQuality)
	assert.NotContains(t, err.Error(), "did you mean")
	assert.Contains(t, err.Error(), "valid:")
}
