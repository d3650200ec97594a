package capture

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zpam/mailtype/pkg/config"
)

func TestServerShutsDownOnCancel(t *testing.T) {
	cfg := config.DefaultConfig().Capture
	cfg.SpoolDir = filepath.Join(t.TempDir(), "spool")
	cfg.GracefulShutdownTimeout = 1000

	srv, err := NewServer(&cfg)
	require.NoError(t, err)
	assert.DirExists(t, cfg.SpoolDir)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.Equal(t, uint64(0), srv.Stats().Captured)
}
