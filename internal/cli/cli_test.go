package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/bistro/internal/auth"
	"github.com/Additional-Code/bistro/internal/config"
)

func TestRootRegistersCommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"start", "migrate", "seed", "worker", "token"} {
		assert.Contains(t, names, want)
	}
}

func TestTokenIssueSignsVerifiableToken(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "cli-test-secret-0123456789")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("CACHE_ENABLED", "false")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "issue", "u-42", "--role", "manager"})
	require.NoError(t, root.Execute())

	cfg, err := config.New()
	require.NoError(t, err)
	caller, err := auth.NewTokens(cfg).Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-42", caller.UserID)
	assert.Equal(t, auth.RoleManager, caller.Role)
}

func TestTokenIssueRejectsUnknownRole(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "issue", "u-42", "--role", "chef"})

	err := root.Execute()
	assert.ErrorContains(t, err, "role must be one of customer, manager")
}
