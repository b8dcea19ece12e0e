package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	assert.True(t, Valid(id), "generated id %q should be valid", id)
	assert.NotEqual(t, id, Generate())
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := Generate()
		assert.False(t, seen[id], "duplicate ID generated: %s", id)
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"job-1701432000-a1b2c3d4", true},
		{"job-1701432000-A1B2C3D4", false},
		{"job-1701432000-a1b2", false},
		{"job--a1b2c3d4", false},
		{"job-17x1432000-a1b2c3d4", false},
		{"task-1701432000-a1b2c3d4", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}
