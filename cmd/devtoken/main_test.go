package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophermarket/gophermarket/internal/auth"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestRun_PlainTokenVerifies(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-secret", secret, "-email", "alice@umn.edu"}, &out))

	id, err := auth.NewHMACVerifier(secret).Verify(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "alice@umn.edu", id.Email)
}

func TestRun_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-secret", secret, "-email", "bob@umn.edu", "-subject", "uid-1", "-format", "json"}, &out))

	var got output
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "bob@umn.edu", got.Email)
	assert.Equal(t, "uid-1", got.Subject)
	assert.NotEmpty(t, got.Token)
}

func TestRun_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"short secret", []string{"-secret", "short"}},
		{"bad email", []string{"-secret", secret, "-email", "nobody"}},
		{"bad ttl", []string{"-secret", secret, "-ttl", "-1h"}},
		{"bad format", []string{"-secret", secret, "-format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(tt.args, &bytes.Buffer{}))
		})
	}
}
