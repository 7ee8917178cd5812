package main

import (
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"

	"github.com/mcdev12/pomogame/go/internal/config"
)

// bindFlags exposes the environment-derived settings as flags; a flag that is
// set wins over its environment variable.
func bindFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVarP(&cfg.ConfigPath, "config", "c", cfg.ConfigPath, "session config file (POMOGAME_CONFIG)")
	fs.StringVarP(&cfg.PlayerPath, "player", "p", cfg.PlayerPath, "player data file (POMOGAME_PLAYER)")
	fs.StringVarP(&cfg.SocketPath, "socket", "s", cfg.SocketPath, "control socket path (POMOGAME_SOCKET)")
	fs.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, "do not write status lines to stdout (POMOGAME_QUIET)")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "tick interval (POMOGAME_INTERVAL)")
	fs.StringVar(&cfg.GatewayAddr, "gateway", cfg.GatewayAddr, "serve the websocket gateway on this address (POMOGAME_GATEWAY_ADDR)")
	fs.StringVar(&cfg.NatsURL, "nats", cfg.NatsURL, "publish session events to this NATS server (NATS_URL)")
}

func expandPath(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}
