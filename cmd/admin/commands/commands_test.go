package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		roleEmail, roleName, requeueMax, dsn = "", "", 50, ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "set-role", "requeue-welcome"} {
		assert.True(t, names[want], want)
	}
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	_, err := run(t, "set-role", "--email", "ada@example.com", "--role", "owner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestSetRoleRequiresEmail(t *testing.T) {
	_, err := run(t, "set-role", "--role", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--email")
}

func TestSetRoleRequiresDatabase(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	_, err := run(t, "set-role", "--email", "ada@example.com", "--role", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}

func TestRequeueRejectsNonPositiveMax(t *testing.T) {
	_, err := run(t, "requeue-welcome", "--max", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--max")
}
