package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/assistant"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/command"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/config"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/provider"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/server"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/session"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/store"
	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/logging"
	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Ballsy HTTP server",
	Long: `Starts the Ballsy voice assistant server.

The server exposes the REST API under /api/v1, the voice WebSocket
under /api/v1/voice/ws and the web client under /app.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadFromEnv()
}

// buildAssistant wires storage, sessions, providers and the command
// processor into the assistant service. The returned cleanup closes
// the session manager and the store.
func buildAssistant(cfg *config.Config) (*assistant.Service, store.Store, func(), error) {
	st, err := store.NewSQLStore(store.SQLConfig{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	sessions := session.NewManager(session.Config{
		MaxSessions:   cfg.Limits.MaxSessions,
		Timeout:       cfg.Limits.SessionTimeout.Duration,
		SweepInterval: cfg.Limits.SweepInterval.Duration,
		RateLimit:     cfg.Limits.RequestsPerWindow,
		RateWindow:    cfg.Limits.RateWindow.Duration,
		ContextTurns:  cfg.Assistant.ContextTurns,
	})

	mgrCfg := provider.ManagerConfig{DefaultProvider: cfg.Assistant.DefaultProvider}
	if cfg.Providers.Mistral.Enabled {
		mgrCfg.MistralKey = cfg.Providers.Mistral.APIKey
		mgrCfg.MistralURL = cfg.Providers.Mistral.BaseURL
		mgrCfg.MistralModel = cfg.Providers.Mistral.Model
		mgrCfg.MistralTimeout = cfg.Providers.Mistral.Timeout.Duration
	}
	if cfg.Providers.Gemini.Enabled {
		mgrCfg.GeminiKey = cfg.Providers.Gemini.APIKey
		mgrCfg.GeminiURL = cfg.Providers.Gemini.BaseURL
		mgrCfg.GeminiModel = cfg.Providers.Gemini.Model
		mgrCfg.GeminiTimeout = cfg.Providers.Gemini.Timeout.Duration
	}
	providers, err := provider.NewManager(mgrCfg)
	if err != nil {
		sessions.Close()
		st.Close()
		return nil, nil, nil, fmt.Errorf("failed to configure providers: %w", err)
	}

	catalog, err := command.LoadCatalog(cfg.Assistant.SitesDir)
	if err != nil {
		sessions.Close()
		st.Close()
		return nil, nil, nil, fmt.Errorf("failed to load site catalog: %w", err)
	}

	svc := assistant.New(st, sessions, providers, command.NewProcessor(catalog), assistant.Config{
		MaxCommandLength: cfg.Limits.MaxCommandLength,
		DefaultModel:     cfg.Assistant.DefaultModel,
		Timeout:          cfg.Assistant.Timeout.Duration,
	})

	cleanup := func() {
		sessions.Close()
		st.Close()
	}
	return svc, st, cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.SetDefaultLevel(logging.ParseLevel(cfg.General.LogLevel))

	svc, st, cleanup, err := buildAssistant(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Assistant.ClearOnStart {
		if err := svc.ClearAllHistory(context.Background()); err != nil {
			printError("failed to clear history", err)
		}
	}

	srv, err := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		Version:      version.App,
		CORS:         cfg.Server.CORS,
	}, svc, st)
	if err != nil {
		return err
	}

	fmt.Printf("Ballsy v%s listening on %s\n", version.App, srv.Address())
	fmt.Printf("Web client: http://%s/app\n", srv.Address())

	errCh := srv.StartAsync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
