package stellar

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIdentity_FromEnvironment(t *testing.T) {
	id, err := LoadIdentity(testSeed, "admin", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, testSeed, id.Secret())
	assert.Equal(t, testAccount, id.Account())
	assert.Equal(t, "environment", id.Source())
}

func TestLoadIdentity_InvalidEnvironmentSecret(t *testing.T) {
	_, err := LoadIdentity("SNOTASEED", "admin", t.TempDir())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SNOTASEED")
}

func TestLoadIdentity_PlaceholderFallsThroughToFiles(t *testing.T) {
	_, err := LoadIdentity(placeholderSecret, "admin", t.TempDir())
	assert.True(t, errors.Is(err, ErrNoIdentity))
}

func TestLoadIdentity_SearchOrder(t *testing.T) {
	home := t.TempDir()
	paths := IdentityPaths(home, "admin")

	// A later path alone is found
	require.NoError(t, WriteIdentity(paths[3], testSeed))
	id, err := LoadIdentity("", "admin", home)
	require.NoError(t, err)
	assert.Equal(t, paths[3], id.Source())

	// An earlier path wins
	require.NoError(t, WriteIdentity(paths[0], testSeed))
	id, err = LoadIdentity("", "admin", home)
	require.NoError(t, err)
	assert.Equal(t, paths[0], id.Source())
}

func TestLoadIdentity_FileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"seed phrase only", `seed_phrase = "one two three"`, "seed phrase"},
		{"empty", ``, "no secret_key"},
		{"bad toml", `secret_key = `, "parsing identity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			path := IdentityPaths(home, "admin")[0]
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := LoadIdentity("", "admin", home)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity", "admin.toml")
	require.NoError(t, WriteIdentity(path, testSeed))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `secret_key = "`+testSeed+`"`)

	assert.Error(t, WriteIdentity(path, "not-a-seed"))
}

func TestIdentity_NeverPrintsSecret(t *testing.T) {
	id, err := NewIdentity(testSeed, "environment")
	require.NoError(t, err)

	assert.NotContains(t, id.String(), testSeed)
	assert.NotContains(t, fmt.Sprintf("%v", id), testSeed)

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("loaded", "identity", id)
	assert.NotContains(t, buf.String(), testSeed)
	assert.Contains(t, buf.String(), testAccount)
}
