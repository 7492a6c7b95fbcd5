package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavSection(t *testing.T) {
	tests := map[string]string{
		"/admin/voice/calls/c1":     "/admin/voice/calls",
		"/admin/voice/calls":        "/admin/voice/calls",
		"/admin/voice":              "/admin/voice",
		"/admin/voice/a1/push":      "/admin/voice",
		"/admin/passwords-alt":      "/admin/passwords-alt",
		"/admin/passwords/generate": "/admin/passwords",
		"/admin/media/m1":           "/admin/media",
		"/auth":                     "/auth",
	}
	for path, want := range tests {
		assert.Equal(t, want, navSection(path), path)
	}
}
