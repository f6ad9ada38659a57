package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMask(t *testing.T) {
	tests := []struct {
		name      string
		mask      string
		positions int
		wantErr   bool
	}{
		{"digits", "?d?d?d?d?d?d", 6, false},
		{"mixed literal", "Pass?d?d", 6, false},
		{"custom charset", "?1?2?l", 3, false},
		{"escaped question mark", "??abc", 4, false},
		{"empty", "", 0, true},
		{"dangling", "abc?", 0, true},
		{"bad placeholder", "?z", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMask(tt.mask)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Error(t, ValidateMask(tt.mask))
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.positions)
		})
	}
}

func TestKeyspace(t *testing.T) {
	ks, err := Keyspace("?d?d?d?d?d?d")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000), ks)

	ks, err = Keyspace("ab?l?u")
	require.NoError(t, err)
	assert.Equal(t, uint64(676), ks)

	_, err = Keyspace("?")
	assert.Error(t, err)
}
