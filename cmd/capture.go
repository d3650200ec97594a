package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/pkg/capture"
)

var (
	captureNetwork  string
	captureAddress  string
	captureSpoolDir string
	captureSenders  []string
	captureDebug    bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Start a milter that saves your outgoing mail for training",
	Long: `Start a milter server for Postfix or Sendmail that copies every outgoing
message sent by one of your addresses into the spool directory as an .eml
file. The next 'mailtype train' run picks them up.

Mail is never modified, delayed or rejected.

Example usage:
  # Capture with the configured senders
  mailtype capture --config mailtype.yaml

  # Capture one address on a unix socket
  mailtype capture --network unix --address /run/mailtype.sock --sender me@example.com

For Postfix integration, add to main.cf:
  smtpd_milters = inet:127.0.0.1:7358
  non_smtpd_milters = inet:127.0.0.1:7358
  milter_default_action = accept`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("network") {
			cfg.Capture.Network = captureNetwork
		}
		if cmd.Flags().Changed("address") {
			cfg.Capture.Address = captureAddress
		}
		if cmd.Flags().Changed("spool") {
			cfg.Capture.SpoolDir = captureSpoolDir
		}
		if cmd.Flags().Changed("sender") {
			cfg.Capture.Senders = captureSenders
		}
		if len(cfg.Capture.Senders) == 0 {
			cfg.Capture.Senders = cfg.Corpus.Senders
		}
		if captureDebug {
			cfg.Logging.Level = "debug"
			if err := applyLogging(cfg); err != nil {
				return err
			}
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		listener, err := net.Listen(cfg.Capture.Network, cfg.Capture.Address)
		if err != nil {
			return fmt.Errorf("failed to create listener: %w", err)
		}
		defer listener.Close()

		server, err := capture.NewServer(&cfg.Capture)
		if err != nil {
			return fmt.Errorf("failed to create capture server: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		serverErr := make(chan error, 1)
		go func() {
			fmt.Printf("✉️  mailtype capture milter starting on %s://%s\n",
				cfg.Capture.Network, cfg.Capture.Address)
			fmt.Printf("📥 Spooling sent mail to %s\n", cfg.Capture.SpoolDir)
			if len(cfg.Capture.Senders) > 0 {
				fmt.Printf("🎯 Senders: %v\n", cfg.Capture.Senders)
			} else {
				fmt.Printf("⚠️  No senders configured, every message is captured\n")
			}
			fmt.Printf("🚀 Press Ctrl+C to stop\n\n")

			serverErr <- server.Serve(ctx, listener)
		}()

		select {
		case <-sigChan:
			fmt.Printf("\n🛑 Shutdown signal received, stopping capture server...\n")

			shutdownCtx, shutdownCancel := context.WithTimeout(
				context.Background(),
				time.Duration(cfg.Capture.GracefulShutdownTimeout)*time.Millisecond,
			)
			defer shutdownCancel()

			cancel()

			select {
			case err := <-serverErr:
				if err != nil && !errors.Is(err, context.Canceled) {
					fmt.Printf("⚠️  Server shutdown with error: %v\n", err)
				} else {
					fmt.Printf("✅ Capture server stopped gracefully\n")
				}
			case <-shutdownCtx.Done():
				fmt.Printf("⏰ Shutdown timeout exceeded, forcing stop\n")
				server.Close()
			}

		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("capture server error: %w", err)
			}
		}

		stats := server.Stats()
		fmt.Printf("📊 Sessions: %d, checked: %d, captured: %d, failed: %d\n",
			stats.MilterCount, stats.Seen, stats.Captured, stats.Failed)
		for _, sender := range stats.Senders {
			fmt.Printf("  %-30s %6d (last %s)\n", sender.Address, sender.Captured,
				sender.LastSeen.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureNetwork, "network", "n", "", "Network type (tcp or unix)")
	captureCmd.Flags().StringVarP(&captureAddress, "address", "a", "", "Bind address (e.g., 127.0.0.1:7358 or /tmp/mailtype.sock)")
	captureCmd.Flags().StringVar(&captureSpoolDir, "spool", "", "Directory captured messages are written to")
	captureCmd.Flags().StringSliceVar(&captureSenders, "sender", nil, "Envelope sender to capture (repeatable)")
	captureCmd.Flags().BoolVarP(&captureDebug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(captureCmd)
}
