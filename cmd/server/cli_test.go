package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuampiHernandez/raave-outfit/internal/auth"
	"github.com/JuampiHernandez/raave-outfit/internal/style"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newCLIApp(strings.NewReader(stdin), &out)
	err := app.Run(append([]string{"raave-outfit"}, args...))
	return out.String(), err
}

func TestStyleCommand(t *testing.T) {
	tests := []struct {
		handle    string
		wantIndex int
		wantStyle string
	}{
		{"a", 1, style.BeachSunset},
		{"@A", 5, style.FestivalFreeSpirit},
		{"raave_ba", 3, style.StreetHypebeast},
	}

	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			out, err := runCLI(t, "", "style", tt.handle)
			require.NoError(t, err)

			var got styleOutput
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.wantIndex, got.Index)
			assert.Equal(t, tt.wantStyle, got.Style)
			assert.Equal(t, strings.TrimPrefix(tt.handle, "@"), got.Handle)
		})
	}
}

func TestStyleCommand_InvalidHandle(t *testing.T) {
	_, err := runCLI(t, "", "style", "not a handle!")
	assert.Error(t, err)
}

func TestHashPasswordCommand_FromStdin(t *testing.T) {
	out, err := runCLI(t, "hunter2-but-longer\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	require.NoError(t, auth.CheckHash(hash))
	assert.NoError(t, auth.NewPasswordService().Verify(hash, "hunter2-but-longer"))
}

func TestHashPasswordCommand_EmptyPassword(t *testing.T) {
	_, err := runCLI(t, "", "hash-password")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	const secret = "cli-test-secret-0123456789"

	out, err := runCLI(t, "", "--jwt-secret", secret, "token", "--ttl", "5m")
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(secret, 0)
	require.NoError(t, err)
	subject, err := tokens.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, auth.AdminSubject, subject)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := runCLI(t, "", "token")
	assert.ErrorContains(t, err, "JWT_SECRET")
}
