package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/pomogame/go/internal/config"
	"github.com/mcdev12/pomogame/go/internal/session"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := config.NewConfigFromEnv()
	if err := newRootCommand(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pomogame",
		Short:        "Pomodoro timer daemon with a unix socket control interface",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.ConfigPath = expandPath(cfg.ConfigPath)
			cfg.PlayerPath = expandPath(cfg.PlayerPath)
			return run(cmd, *cfg)
		},
	}
	bindFlags(cmd.Flags(), cfg)
	return cmd
}

func run(cmd *cobra.Command, cfg config.Config) error {
	zerolog.SetGlobalLevel(cfg.LogLevel)

	// a closed stdout must surface as a write error, not kill the process
	signal.Ignore(syscall.SIGPIPE)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := session.LoadConfig(cfg.ConfigPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.ConfigPath).Msg("failed to load session config")
		return err
	}

	services, err := setupServices(ctx, cfg, sessions)
	if err != nil {
		log.Error().Err(err).Msg("failed to set up services")
		return err
	}
	defer services.Close()

	log.Info().
		Str("config", cfg.ConfigPath).
		Str("player", cfg.PlayerPath).
		Str("socket", cfg.SocketPath).
		Int("sessions", len(sessions.Sessions())).
		Msg("starting pomogame")

	if err := services.Run(ctx); err != nil {
		log.Error().Err(err).Msg("daemon stopped with error")
		return err
	}
	log.Info().Msg("pomogame stopped")
	return nil
}
