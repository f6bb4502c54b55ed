package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  addr: "127.0.0.1:9000"
viewer:
  includeGeometryDiagnostics: true
  frameRate: 10
`))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Viewer.IncludeGeometryDiagnostics)
	assert.Equal(t, 100*time.Millisecond, cfg.Viewer.FrameInterval())
	assert.True(t, cfg.Viewer.EnableDamping)
	assert.Equal(t, float32(0.05), cfg.Viewer.DampingFactor)
	assert.Equal(t, 1280, cfg.Viewer.Width)
	assert.Equal(t, "bemviewer", cfg.Metrics.Namespace)
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, data := range []string{
		"viewer: [",
		"viewer:\n  frameRate: 0\n",
		"viewer:\n  width: -1\n",
		"viewer:\n  dampingFactor: 2\n",
		"source:\n  encoding: nope\n",
	} {
		_, err := Parse([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bemviewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  encoding: Windows 1252\n"), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Windows 1252", cfg.Source.Encoding)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSourceRoot(t *testing.T) {
	root := t.TempDir()
	cfg, err := Parse([]byte("source:\n  root: " + root + "\n"))
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Source.Root)

	file := filepath.Join(root, "model.gltf")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0644))
	_, err = Parse([]byte("source:\n  root: " + file + "\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("source:\n  root: " + filepath.Join(root, "missing") + "\n"))
	assert.Error(t, err)
}

func TestDecodeSource(t *testing.T) {
	t.Cleanup(func() { SetEncoding("") })

	out, err := DecodeSource([]byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))

	require.NoError(t, SetEncoding("Windows 1252"))
	out, err = DecodeSource([]byte{'"', 0xe9, 't', 0xe9, '"'})
	require.NoError(t, err)
	assert.Equal(t, "\"été\"", string(out))

	assert.Error(t, SetEncoding("Klingon"))
	assert.Contains(t, ListEncodings(), "Windows 1252")
}
