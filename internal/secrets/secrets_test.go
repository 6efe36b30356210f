// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf2md/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "UPSTAGE_API_KEY", "  up_abc123  \n")
				writeFile(t, dir, "OPENAI_API_KEY", "sk-xyz789")
				return dir
			},
			want: map[string]string{
				"UPSTAGE_API_KEY": "up_abc123",
				"OPENAI_API_KEY":  "sk-xyz789",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "ANTHROPIC_API_KEY", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"ANTHROPIC_API_KEY": "valid-key",
			},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "GEMINI_API_KEY", "g_real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"GEMINI_API_KEY": "g_real",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "UPSTAGE_API_KEY=up_env\nEMPTY=\n# comment\nOPENAI_API_KEY=\"sk-quoted\"\n")

	got, err := LoadEnvFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"UPSTAGE_API_KEY": "up_env",
		"OPENAI_API_KEY":  "sk-quoted",
	}, got)

	missing, err := LoadEnvFile(filepath.Join(dir, "nope.env"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestNewDirectoryWinsOverEnvFile(t *testing.T) {
	dir := t.TempDir()
	secretDir := filepath.Join(dir, "secrets")
	require.NoError(t, os.Mkdir(secretDir, 0o755))
	writeFile(t, secretDir, "UPSTAGE_API_KEY", "from-dir")
	writeFile(t, dir, ".env", "UPSTAGE_API_KEY=from-env\nOPENAI_API_KEY=sk-env\n")

	store, err := New(types.SecretsConfig{Dir: secretDir, EnvFile: filepath.Join(dir, ".env")})
	require.NoError(t, err)

	v, ok := store.Lookup("UPSTAGE_API_KEY")
	require.True(t, ok)
	assert.Equal(t, "from-dir", v)

	v, ok = store.Lookup("OPENAI_API_KEY")
	require.True(t, ok)
	assert.Equal(t, "sk-env", v)

	assert.Equal(t, []string{"OPENAI_API_KEY", "UPSTAGE_API_KEY"}, store.Keys())
}

func TestLookupFallsBackToEnvironment(t *testing.T) {
	t.Setenv("PDF2MD_TEST_SECRET", "  from-process  ")

	store, err := New(types.SecretsConfig{})
	require.NoError(t, err)

	v, ok := store.Lookup("PDF2MD_TEST_SECRET")
	require.True(t, ok)
	assert.Equal(t, "from-process", v)

	_, ok = store.Lookup("PDF2MD_TEST_SECRET_MISSING")
	assert.False(t, ok)
}

func TestFromMapIgnoresEnvironment(t *testing.T) {
	t.Setenv("UPSTAGE_API_KEY", "from-process")

	store := FromMap(map[string]string{"OPENAI_API_KEY": "sk"})
	_, ok := store.Lookup("UPSTAGE_API_KEY")
	assert.False(t, ok)

	var nilStore *Store
	_, ok = nilStore.Lookup("OPENAI_API_KEY")
	assert.False(t, ok)
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
