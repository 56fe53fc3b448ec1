package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/webdisk/pkg/adapter/web"
	"github.com/marmos91/webdisk/pkg/config"
	"github.com/marmos91/webdisk/pkg/store/blob"
	"github.com/marmos91/webdisk/pkg/store/blob/memory"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		initForce = false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "webdisk "+Version)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webdisk.yaml")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = config.Load(path)
	require.NoError(t, err)

	_, err = execute(t, "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, os.WriteFile(path, []byte("# edited\n"), 0644))
	_, err = execute(t, "init", "--config", path, "--force")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# WebDisk Configuration File")
}

// closingStore records Close calls.
type closingStore struct {
	blob.BlobStore
	closed atomic.Int32
}

func (c *closingStore) Close() error {
	c.closed.Add(1)
	return nil
}

func TestNewServer_ClosesStoreWhenAdaptersFail(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.HTTP = web.HTTPConfig{Enabled: false}
	store := &closingStore{BlobStore: memory.NewMemoryBlobStore()}

	srv, err := newServer(cfg, store, config.InitializeMetrics(cfg))
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Equal(t, int32(1), store.closed.Load())
}

func TestNewServer_LeavesStoreOpen(t *testing.T) {
	cfg := config.GetDefaultConfig()
	store := &closingStore{BlobStore: memory.NewMemoryBlobStore()}

	srv, err := newServer(cfg, store, config.InitializeMetrics(cfg))
	require.NoError(t, err)
	require.Len(t, srv.Adapters(), 1)
	assert.Equal(t, "HTTP", srv.Adapters()[0].Protocol())
	assert.Zero(t, store.closed.Load())
}
