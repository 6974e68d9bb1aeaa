package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/codesync/codesync-backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := fmt.Sprintf("storage:\n  driver: sqlite\n  sqlite:\n    path: %s\n", filepath.Join(dir, "db", "codesync.db"))
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateCreatesSchema(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "--config", path})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "schema is up to date")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	st, err := openStore(context.Background(), cfg.Storage)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Ping(context.Background()))
}

func TestMigrateMissingConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, root.Execute())
}

func TestNewSignerFallsBackToRandomSecret(t *testing.T) {
	s, err := newSigner(config.JWT{Issuer: "codesync", TTL: 1})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
