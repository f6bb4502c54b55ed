package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLoader struct {
	mu    sync.Mutex
	loads []string
}

func (l *recordingLoader) LoadFromFile(ctx context.Context, location string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads = append(l.loads, location)
	return nil
}

func (l *recordingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loads)
}

func TestReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gltf")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	loader := &recordingLoader{}
	w := &Watcher{Path: path, Loader: loader, Debounce: 20 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	// a burst of writes results in a single reload
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"asset":{"version":"2.0"}}`), 0644))
	}
	require.Eventually(t, func() bool { return loader.count() >= 1 }, 5*time.Second, 10*time.Millisecond)

	// other files in the directory are ignored
	before := loader.count()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, loader.count())

	cancel()
	assert.NoError(t, <-done)

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	loader.mu.Lock()
	assert.Equal(t, abs, loader.loads[0])
	loader.mu.Unlock()
}

func TestRunMissingDirectory(t *testing.T) {
	w := &Watcher{Path: filepath.Join(t.TempDir(), "missing", "model.gltf"), Loader: &recordingLoader{}}
	assert.Error(t, w.Run(context.Background()))
}
