// Package capture is a milter that copies a user's outgoing mail into the
// training corpus as it passes through Postfix or Sendmail.
package capture

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/d--j/go-milter"
	"github.com/zpam/mailtype/internal/logger"
	"github.com/zpam/mailtype/pkg/config"
	"github.com/zpam/mailtype/pkg/tracker"
)

// Server represents the capture milter server
type Server struct {
	config    *config.CaptureConfig
	spool     *Spool
	stats     *Stats
	milterSrv *milter.Server
}

// NewServer creates a new milter server with the given configuration
func NewServer(cfg *config.CaptureConfig) (*Server, error) {
	spool, err := NewSpool(cfg.SpoolDir)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Senders: tracker.NewSenderTracker(24 * time.Hour)}
	log := logger.New("capture")

	// Connection and HELO data are not needed; no actions are requested
	// because mail is never modified.
	milterOpts := []milter.Option{
		milter.WithProtocol(milter.OptNoConnect | milter.OptNoHelo),
	}

	if cfg.ReadTimeoutMs > 0 {
		milterOpts = append(milterOpts, milter.WithReadTimeout(
			time.Duration(cfg.ReadTimeoutMs)*time.Millisecond))
	}
	if cfg.WriteTimeoutMs > 0 {
		milterOpts = append(milterOpts, milter.WithWriteTimeout(
			time.Duration(cfg.WriteTimeoutMs)*time.Millisecond))
	}

	// One handler per SMTP connection
	milterOpts = append(milterOpts, milter.WithMilter(func() milter.Milter {
		return NewHandler(cfg, spool, stats, log)
	}))

	return &Server{
		config:    cfg,
		spool:     spool,
		stats:     stats,
		milterSrv: milter.NewServer(milterOpts...),
	}, nil
}

// Serve starts the milter server and listens for connections until ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.milterSrv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(s.config.GracefulShutdownTimeout)*time.Millisecond,
		)
		defer cancel()

		if err := s.milterSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown milter server: %w", err)
		}
		return ctx.Err()

	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("milter server error: %w", err)
		}
		return nil
	}
}

// Close closes the milter server
func (s *Server) Close() error {
	return s.milterSrv.Close()
}

// Stats returns server statistics
func (s *Server) Stats() ServerStats {
	return ServerStats{
		MilterCount: s.milterSrv.MilterCount(),
		Seen:        s.stats.Seen.Load(),
		Captured:    s.stats.Captured.Load(),
		Failed:      s.stats.Failed.Load(),
		Senders:     s.stats.Senders.Senders(),
	}
}

// ServerStats contains server statistics
type ServerStats struct {
	MilterCount uint64 // Total number of milter instances created
	Seen        uint64 // messages whose envelope sender was checked
	Captured    uint64
	Failed      uint64
	Senders     []tracker.SenderStats
}
