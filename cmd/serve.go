package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/moodang/internal/commands"
	"github.com/nextlevelbuilder/moodang/internal/config"
	"github.com/nextlevelbuilder/moodang/internal/dispatcher"
	"github.com/nextlevelbuilder/moodang/internal/shellenv"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the worker dispatcher over a websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			opts := shellenv.WorkerOptions()
			opts.MaxProcesses = cfg.MaxProcesses
			opts.DebugLog = cfg.DebugLog

			registry := commands.NewRegistry()
			srv := dispatcher.NewServer(registry, opts, logger)

			mux := http.NewServeMux()
			mux.Handle("/ws", srv)
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, "ok, %d active sessions\n", srv.SessionCount())
			})

			logger.Info("moo-dang dispatcher listening", "addr", cfg.ListenAddr)
			return http.ListenAndServe(cfg.ListenAddr, mux)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
