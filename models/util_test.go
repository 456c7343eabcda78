package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueStrings(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"no duplicates", []string{"web", "app"}, []string{"web", "app"}},
		{"duplicates keep first order", []string{"web", "app", "web", "db", "app"}, []string{"web", "app", "db"}},
		{"case sensitive", []string{"Web", "web"}, []string{"Web", "web"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UniqueStrings(tt.in))
		})
	}
}
