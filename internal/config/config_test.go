package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content, ext string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config"+ext)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.True(t, *cfg.Server.Gzip)
	assert.Equal(t, "info", cfg.Logging.Level)

	fs := cfg.FileServer
	assert.Equal(t, ".", fs.BaseDir)
	assert.Equal(t, DefaultMaxAge, *fs.MaxAge)
	assert.True(t, *fs.ETag)
	assert.True(t, *fs.LastModified)
	assert.True(t, *fs.Conditional)
	assert.True(t, *fs.Range)
	assert.True(t, *fs.TrailingSlash)
	assert.False(t, *fs.HushErrors)
	assert.Equal(t, NotFoundEmpty, fs.NotFoundPolicy.Mode)
	assert.True(t, fs.IndexPolicy.Enabled)
	assert.Equal(t, []string{"html"}, fs.IndexPolicy.Extensions)
}

func TestLoadTOML(t *testing.T) {
	content := `
[server]
address = "127.0.0.1:9090"
h2c = true

[logging]
level = "debug"

[file_server]
base_dir = "/srv/www"
max_age = 60
etag = false
not_found = "404.html"
implicit_index = ["html", "htm", ".html", "HTM"]
`
	path := writeTempConfig(t, content, ".toml")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
	assert.True(t, cfg.Server.H2C)
	assert.Equal(t, "debug", cfg.Logging.Level)

	fs := cfg.FileServer
	assert.Equal(t, "/srv/www", fs.BaseDir)
	assert.Equal(t, 60, *fs.MaxAge)
	assert.False(t, *fs.ETag)
	assert.Equal(t, NotFoundSubstitute, fs.NotFoundPolicy.Mode)
	assert.Equal(t, "404.html", fs.NotFoundPolicy.Path)
	// Extensions are lowercased, stripped of dots, and deduplicated in order.
	assert.Equal(t, []string{"html", "htm"}, fs.IndexPolicy.Extensions)
}

func TestLoadJSON(t *testing.T) {
	content := `{
		"file_server": {
			"base_dir": "/data",
			"not_found": false,
			"implicit_index": false,
			"trailing_slash": false
		}
	}`
	path := writeTempConfig(t, content, ".json")
	cfg, err := Load(path)
	require.NoError(t, err)

	fs := cfg.FileServer
	assert.Equal(t, "/data", fs.BaseDir)
	assert.Equal(t, NotFoundDefer, fs.NotFoundPolicy.Mode)
	assert.False(t, fs.IndexPolicy.Enabled)
	assert.False(t, *fs.TrailingSlash)
}

func TestLoadAutodetect(t *testing.T) {
	// No recognized extension: TOML is tried first, then JSON.
	path := writeTempConfig(t, `{"file_server":{"max_age":0}}`, ".conf")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, *cfg.FileServer.MaxAge)

	path = writeTempConfig(t, `not toml and not json`, ".conf")
	_, err = Load(path)
	require.Error(t, err)
}

func TestNormalizeRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		fs   FileServer
	}{
		{"negative max_age", FileServer{MaxAge: intPtr(-1)}},
		{"empty not_found path", FileServer{NotFound: ""}},
		{"not_found wrong type", FileServer{NotFound: 42}},
		{"empty implicit_index list", FileServer{ImplicitIndex: []string{}}},
		{"implicit_index wrong element", FileServer{ImplicitIndex: []any{7}}},
		{"implicit_index with slash", FileServer{ImplicitIndex: []string{"ht/ml"}}},
		{"empty mime type", FileServer{MimeTypes: map[string]string{".foo": ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fs.Normalize()
			require.Error(t, err)
			var cerr *Error
			assert.ErrorAs(t, err, &cerr)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	fs := FileServer{NotFound: "missing.html", ImplicitIndex: []string{"htm"}}
	require.NoError(t, fs.Normalize())
	first := fs
	require.NoError(t, fs.Normalize())
	assert.Equal(t, first.NotFoundPolicy, fs.NotFoundPolicy)
	assert.Equal(t, first.IndexPolicy, fs.IndexPolicy)
}
