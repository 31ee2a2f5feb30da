package gameid

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	id := Generate()
	require.Len(t, id, 26)
	require.NoError(t, Validate(id))
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateTimeOrdered(t *testing.T) {
	first := Generate()
	time.Sleep(2 * time.Millisecond)
	second := Generate()

	ids := []string{second, first}
	sort.Strings(ids)
	assert.Equal(t, first, ids[0], "ids should sort in creation order")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"valid", Generate(), true},
		{"too short", "abc", false},
		{"too long", Generate() + "0", false},
		{"first char out of range", "z" + Generate()[1:], false},
		{"invalid character", Generate()[:25] + "u", false},
		{"uppercase rejected", "0" + "ABCDEFGHJKMNPQRSTVWXYZ012", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.id)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
