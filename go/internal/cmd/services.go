package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/app"
	"github.com/mcdev12/pomogame/go/internal/broadcast"
	"github.com/mcdev12/pomogame/go/internal/config"
	"github.com/mcdev12/pomogame/go/internal/gateway"
	"github.com/mcdev12/pomogame/go/internal/notify"
	"github.com/mcdev12/pomogame/go/internal/player"
	"github.com/mcdev12/pomogame/go/internal/session"
	"github.com/mcdev12/pomogame/go/internal/socket"
)

type Services struct {
	Players     *player.App
	Publisher   notify.Publisher
	Dispatcher  *notify.Dispatcher
	Broadcaster *broadcast.Broadcaster
	Listener    *socket.Listener
	Driver      *app.App
	Gateway     *gateway.Server

	stdout *bufio.Writer
}

func setupServices(ctx context.Context, cfg config.Config, sessions *session.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Repository layer → App layer → Driver → Transports

	playerRepo, err := player.NewRepository(cfg.PlayerPath, time.Now)
	if err != nil {
		return nil, err
	}
	players := player.NewApp(playerRepo, time.Now)
	if err := players.Load(); err != nil {
		return nil, err
	}

	publisher, err := setupPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(publisher, notify.DefaultDispatcherConfig())

	stdout := bufio.NewWriter(os.Stdout)
	bc := broadcast.New(stdout, cfg.Quiet)

	listenerCfg := socket.DefaultListenerConfig()
	listenerCfg.Path = cfg.SocketPath
	listener, err := socket.NewListener(listenerCfg)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	driver, err := app.New(app.Options{
		ConfigPath:  cfg.ConfigPath,
		Config:      sessions,
		Interval:    cfg.Interval,
		Broadcaster: bc,
		Players:     players,
		Events:      dispatcher,
	})
	if err != nil {
		_ = listener.Close()
		_ = publisher.Close()
		return nil, err
	}

	s := &Services{
		Players:     players,
		Publisher:   publisher,
		Dispatcher:  dispatcher,
		Broadcaster: bc,
		Listener:    listener,
		Driver:      driver,
		stdout:      stdout,
	}
	if cfg.GatewayAddr != "" {
		s.Gateway = gateway.NewServer(cfg.GatewayAddr, gateway.DefaultConnectionConfig(), driver, bc)
	}
	return s, nil
}

func setupPublisher(ctx context.Context, cfg config.Config) (notify.Publisher, error) {
	if cfg.NatsURL == "" {
		log.Info().Msg("NATS_URL not set, session events are only logged")
		return notify.NewLogPublisher(), nil
	}

	jsCfg := notify.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NatsURL
	publisher, err := notify.NewJetStreamPublisher(ctx, jsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}
	return publisher, nil
}

// Run serves until ctx is cancelled or the driver fails. The dispatcher is
// stopped only after the driver has returned so its last events are flushed.
func (s *Services) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Listener.Start(runCtx); err != nil {
			log.Error().Err(err).Msg("socket listener failed")
		}
	}()

	if s.Gateway != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Gateway.Start(runCtx); err != nil {
				log.Error().Err(err).Msg("gateway failed")
			}
		}()
	}

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		if err := s.Dispatcher.Start(dispatchCtx); err != nil {
			log.Error().Err(err).Msg("event dispatcher failed")
		}
	}()

	err := s.Driver.Run(runCtx, s.Listener.Requests())

	cancel()
	wg.Wait()
	stopDispatch()
	<-dispatchDone

	return err
}

// Close releases sinks and the event publisher.
func (s *Services) Close() {
	s.Broadcaster.Close()
	if err := s.stdout.Flush(); err != nil {
		log.Debug().Err(err).Msg("failed to flush stdout")
	}
	if err := s.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close event publisher")
	}
}
