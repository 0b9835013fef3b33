package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/api"
	"github.com/cchalm/codebot/internal/auth"
	"github.com/cchalm/codebot/internal/config"
	"github.com/cchalm/codebot/internal/project"
	"github.com/cchalm/codebot/internal/storage"
	"github.com/cchalm/codebot/internal/todo"
	"github.com/cchalm/codebot/internal/verify"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serves the fix workflow (upload, preview, apply, verify) together with the session
and todo endpoints used by the web frontend.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8000", "Address to listen on")
	_ = v.BindPFlag(config.KeyAddr, serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := setupContext()

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	verifier := verify.NewVerifier(0, logger)
	b, cleanup, err := newBot(ctx, cfg, newWorkspace(ctx, cfg), verifier)
	if err != nil {
		return err
	}
	defer cleanup()

	users := auth.NewUserStore(db)
	server := api.NewServer(cfg.Addr, api.Dependencies{
		Fixes:              b,
		Loader:             project.NewLoader(cfg.GitTimeout, logger),
		Projects:           project.NewRegistry(),
		Verifier:           verifier,
		Auth:               auth.NewAuthenticator(users, auth.NewSessionStore(db, auth.DefaultSessionTTL)),
		Todos:              todo.NewStore(db),
		DefaultProjectPath: cfg.ProjectPath,
		AllowedOrigins:     cfg.AllowedOrigins,
	}, logger)

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server did not shut down cleanly: %w", err)
	}
	logger.Info("Server stopped", zap.String("addr", cfg.Addr))
	return nil
}
