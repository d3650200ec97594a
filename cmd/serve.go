package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/internal/ipc"
	"github.com/zpam/mailtype/internal/logger"
	"github.com/zpam/mailtype/pkg/predict"
)

var serveMaxLimit int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer suggestion requests over stdin/stdout",
	Long: `Serve suggestions to an editor plugin using msgpack messages on
stdin and stdout.

Stdout carries only protocol messages; logs go to stderr or the configured
log file. The server exits when stdin is closed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("max-limit") {
			cfg.Serve.MaxLimit = serveMaxLimit
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m, err := loadModel(ctx, cfg)
		if err != nil {
			return err
		}

		log := logger.New("serve")
		info := m.Info()
		log.Info("model loaded", "store", describeStore(cfg), "order", info.Order, "contexts", info.Contexts)

		srv := ipc.NewServer(predict.New(m, cfg.Model.Suggestions), cfg.Serve.MaxLimit, os.Stdin, os.Stdout)
		if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		log.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&serveMaxLimit, "max-limit", 50, "Maximum suggestions per request")

	rootCmd.AddCommand(serveCmd)
}
