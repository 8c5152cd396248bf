package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimSourcePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"module prefix", "/home/ci/fulfillment/internal/gelato/client.go", "internal/gelato/client.go"},
		{"gopath src", "/root/go/src/github.com/x/y.go", "github.com/x/y.go"},
		{"unknown", "/opt/other.go", "/opt/other.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trimSourcePath(tt.path, "/fulfillment/"))
		})
	}
}
