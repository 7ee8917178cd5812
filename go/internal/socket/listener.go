package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/command"
)

// Request is a decoded command together with the connection it arrived on.
// The receiver owns Conn: it replies, registers it as a sink, or closes it.
type Request struct {
	Command command.Command
	Conn    net.Conn
}

type ListenerConfig struct {
	Path        string        // Unix socket path
	ReadTimeout time.Duration // How long a client may take to send its command
	QueueSize   int           // Buffered requests waiting for the driver
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Path:        Path(),
		ReadTimeout: 5 * time.Second,
		QueueSize:   16,
	}
}

// Listener accepts control connections and hands each decoded command to the
// driver over Requests.
type Listener struct {
	cfg      ListenerConfig
	ln       net.Listener
	requests chan Request
	wg       sync.WaitGroup
}

// NewListener removes any stale socket file at cfg.Path and starts listening.
func NewListener(cfg ListenerConfig) (*Listener, error) {
	if cfg.Path == "" {
		cfg.Path = Path()
	}
	if err := os.Remove(cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}

	log.Info().Str("path", cfg.Path).Msg("listening for commands")

	return &Listener{
		cfg:      cfg,
		ln:       ln,
		requests: make(chan Request, cfg.QueueSize),
	}, nil
}

// Requests delivers decoded commands. It is closed when Start returns.
func (l *Listener) Requests() <-chan Request { return l.requests }

// Addr returns the socket path.
func (l *Listener) Addr() string { return l.cfg.Path }

// Start accepts connections until ctx is cancelled, then closes the listener,
// waits for in-flight connections and removes the socket file.
func (l *Listener) Start(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.Close()
	})
	defer stop()
	defer l.cleanup()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("socket listener shutting down")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Err(err).Msg("failed to accept connection")
			continue
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handleConn(ctx, conn)
		}()
	}
}

// Close stops listening and removes the socket file. It is for a listener
// whose Start never ran; Start cleans up after itself.
func (l *Listener) Close() error {
	err := l.ln.Close()
	if rerr := os.Remove(l.cfg.Path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
		err = rerr
	}
	return err
}

func (l *Listener) cleanup() {
	_ = l.ln.Close()
	l.wg.Wait()
	close(l.requests)
	if err := os.Remove(l.cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", l.cfg.Path).Msg("failed to remove socket file")
	}
}

func (l *Listener) handleConn(ctx context.Context, conn net.Conn) {
	if l.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))
	}
	// unblock a pending read when shutting down
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	cmd, err := command.Decode(conn)
	stop()
	if err != nil {
		log.Warn().Err(err).Msg("failed to decode command")
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	log.Debug().Str("command", string(cmd.Kind)).Msg("command received")

	select {
	case l.requests <- Request{Command: cmd, Conn: conn}:
	case <-ctx.Done():
		_ = conn.Close()
	}
}
