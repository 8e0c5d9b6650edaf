package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/kvdoc"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, sources, err := LoadConfig(dir, "", Config{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Store:            "file",
		Path:             filepath.Join(dir, "kvdoc-data.json"),
		Encoding:         "json",
		FetchConcurrency: 8,
	}, cfg)
	assert.Equal(t, ConfigSources{}, sources)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir, xdg := t.TempDir(), t.TempDir()
	env := map[string]string{"XDG_CONFIG_HOME": xdg, "HOME": "/nonexistent"}
	globalPath := filepath.Join(xdg, "kvdoc", "config.json")
	writeConfig(t, globalPath, `{"store": "redis", "redis_url": "redis://global:6379/1", "encoding": "msgpack"}`)

	cfg, sources, err := LoadConfig(dir, "", Config{}, nil, env)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, "redis://global:6379/1", cfg.RedisURL)
	assert.Equal(t, "", cfg.Path)
	assert.Equal(t, globalPath, sources.Global)

	writeConfig(t, filepath.Join(dir, ConfigFileName), `{
		// project overrides the store but keeps the encoding
		"store": "sqlite",
		"path": "db/main.sqlite",
	}`)
	cfg, sources, err = LoadConfig(dir, "", Config{}, nil, env)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, filepath.Join(dir, "db", "main.sqlite"), cfg.Path)
	assert.Equal(t, "msgpack", cfg.Encoding)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), sources.Project)

	overrides := Config{Store: "bolt", Path: "/abs/x.bolt", Encoding: "json", Verbose: true, FetchConcurrency: 2}
	cfg, _, err = LoadConfig(dir, "", overrides, map[string]bool{"store": true, "path": true, "verbose": true}, env)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Store)
	assert.Equal(t, "/abs/x.bolt", cfg.Path)
	assert.Equal(t, "msgpack", cfg.Encoding, "encoding was not marked as overridden")
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 8, cfg.FetchConcurrency)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, ConfigFileName), `{"store": "sqlite"}`)
	writeConfig(t, filepath.Join(dir, "alt.json"), `{"store": "bolt"}`)

	cfg, sources, err := LoadConfig(dir, "alt.json", Config{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Store)
	assert.Equal(t, filepath.Join(dir, "kvdoc.bolt"), cfg.Path)
	assert.Equal(t, filepath.Join(dir, "alt.json"), sources.Project)

	_, _, err = LoadConfig(dir, "missing.json", Config{}, nil, nil)
	assert.True(t, errors.Is(err, errConfigFileNotFound), "err = %v", err)
}

func TestLoadConfigRedisDefaultURL(t *testing.T) {
	cfg, _, err := LoadConfig(t.TempDir(), "", Config{Store: "redis"}, map[string]bool{"store": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultRedisURL, cfg.RedisURL)
	assert.Equal(t, "", cfg.Path)
}

func TestLoadConfigCollections(t *testing.T) {
	dir, xdg := t.TempDir(), t.TempDir()
	env := map[string]string{"XDG_CONFIG_HOME": xdg}
	writeConfig(t, filepath.Join(xdg, "kvdoc", "config.json"), `{
		"collections": {
			"user": {"name": {"required": true}},
			"post": {"title": {"type": "string"}},
		}
	}`)
	writeConfig(t, filepath.Join(dir, ConfigFileName), `{
		"collections": {
			"user": {"name": {"type": "string", "max_length": 10}, "age": {"type": "int", "min": 0}},
		}
	}`)

	cfg, _, err := LoadConfig(dir, "", Config{}, nil, env)
	require.NoError(t, err)
	require.Len(t, cfg.Collections, 2)
	assert.Equal(t, kvdoc.Rules{
		"name": {Type: kvdoc.StringType, MaxLength: kvdoc.IntPtr(10)},
		"age":  {Type: kvdoc.IntType, Min: kvdoc.Float64Ptr(0)},
	}, cfg.Collections["user"], "project rules replace global rules per collection")

	scm := cfg.schema()
	assert.Equal(t, []string{"post", "user"}, scm.Collections())
	assert.Nil(t, Config{}.schema())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		e       string
	}{
		{"bad jsonc", `{"store": `, "invalid JSONC"},
		{"unknown field", `{"stor": "mem"}`, "invalid JSON"},
		{"wrong type", `{"verbose": "yes"}`, "invalid JSON"},
		{"unknown store", `{"store": "etcd"}`, `unknown store "etcd"`},
		{"unknown encoding", `{"encoding": "xml"}`, `unknown encoding "xml"`},
		{"negative concurrency", `{"fetch_concurrency": -1}`, "fetch_concurrency cannot be negative"},
		{"bad field type", `{"collections": {"user": {"name": {"type": "date"}}}}`, `user.name: unknown type "date"`},
		{"bad pattern", `{"collections": {"user": {"name": {"pattern": "("}}}}`, "user.name: error parsing regexp"},
		{"bad collection", `{"collections": {"a:b": {}}}`, `bad collection name "a:b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, filepath.Join(dir, ConfigFileName), tt.content)
			_, _, err := LoadConfig(dir, "", Config{}, nil, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.e)
		})
	}

	_, _, err := LoadConfig(t.TempDir(), "", Config{}, map[string]bool{"path": true}, nil)
	assert.ErrorIs(t, err, errPathEmpty)
}

func TestFormatConfig(t *testing.T) {
	s, err := FormatConfig(Config{Store: "mem", Encoding: "json"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"store\": \"mem\",\n  \"encoding\": \"json\"\n}", s)
}
