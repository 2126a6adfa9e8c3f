package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFailure(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"error", true},
		{"Error", true},
		{"ERROR", true},
		{"failed", true},
		{"FAILED", true},
		{"success", false},
		{"warning", false},
		{"failure", false}, // only the exact statuses count
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFailure(tt.status))
		})
	}
}
