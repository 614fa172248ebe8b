package l2n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, 3.0, cfg.AreaRatio)
	assert.Equal(t, 0, cfg.MaxVertexCount)
	assert.Equal(t, int64(1), cfg.TextEnlargement)
	assert.Equal(t, "LABEL", cfg.TextPropertyName)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "zero values take defaults",
			cfg:  Config{},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 1, c.Threads)
				assert.Equal(t, 3.0, c.AreaRatio)
				assert.Equal(t, "LABEL", c.TextPropertyName)
			},
		},
		{name: "negative area ratio", cfg: Config{AreaRatio: -1}, wantErr: true},
		{name: "negative vertex count", cfg: Config{MaxVertexCount: -2}, wantErr: true},
		{name: "negative text enlargement", cfg: Config{TextEnlargement: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "l2n.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 4\narea_ratio: 2.5\ntext_property_name: NET\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 2.5, cfg.AreaRatio)
	assert.Equal(t, "NET", cfg.TextPropertyName)
	assert.Equal(t, int64(1), cfg.TextEnlargement)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("threads: [1\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "failed to parse config")

	neg := filepath.Join(dir, "neg.yaml")
	require.NoError(t, os.WriteFile(neg, []byte("max_vertex_count: -1\n"), 0o644))
	_, err = LoadConfig(neg)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestWithConfigAppliesToStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threads = 3
	cfg.MaxVertexCount = 16
	l, err := NewStandalone(WithConfig(*cfg))
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, 3, l.Threads())
	assert.Equal(t, 16, l.MaxVertexCount())
	assert.Equal(t, 3.0, l.AreaRatio())

	l.SetThreads(0)
	assert.Equal(t, 1, l.Threads())

	_, err = NewStandalone(WithConfig(Config{AreaRatio: -3}))
	assert.Error(t, err)
}
