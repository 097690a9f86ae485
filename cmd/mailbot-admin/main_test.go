package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--rules-backend", "sqlite", "--sqlite-path", dbPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRulesCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rules.db")

	out, err := execute(t, db, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No rules")

	_, err = execute(t, db, "rules", "add", "sender", "linkedin.com", "Social")
	require.NoError(t, err)
	_, err = execute(t, db, "rules", "add", "subject", "invoice", "Finance")
	require.NoError(t, err)

	out, err = execute(t, db, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `1. sender "linkedin.com" -> Social`)
	assert.Contains(t, out, `2. subject "invoice" -> Finance`)

	out, err = execute(t, db, "rules", "remove", "#1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed: sender")

	_, err = execute(t, db, "rules", "remove", "nothing-here")
	assert.ErrorContains(t, err, "no rule with pattern")

	_, err = execute(t, db, "rules", "clear")
	require.NoError(t, err)
	out, err = execute(t, db, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No rules")
}

func TestRulesAddRejectsUnknownMatchType(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rules.db")

	_, err := execute(t, db, "rules", "add", "header", "x", "Work")
	assert.Error(t, err)
}

func TestReadSecret(t *testing.T) {
	value, err := readSecret(strings.NewReader("hunter2\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)

	value, err = readSecret(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", value)

	_, err = readSecret(strings.NewReader("\n"))
	assert.ErrorContains(t, err, "empty secret")
}
