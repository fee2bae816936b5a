package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
)

// ShutdownHook releases a resource once the server stops accepting work.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	run  ShutdownHook
}

// Server is one HTTP listener with an ordered shutdown sequence: keep-alives
// off, hooks inside the drain window, then http.Server.Shutdown.
type Server struct {
	name            string
	http            *http.Server
	log             *logger.Logger
	hooks           []namedHook
	drainTimeout    time.Duration
	shutdownTimeout time.Duration
}

func New(name, port string, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		name: name,
		http: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: constants.ServerReadHeaderTimeout,
			ReadTimeout:       constants.ServerReadTimeout,
			WriteTimeout:      constants.ServerWriteTimeout,
			IdleTimeout:       constants.ServerIdleTimeout,
		},
		log:             log,
		drainTimeout:    constants.DrainTimeout,
		shutdownTimeout: constants.ShutdownTimeout,
	}
}

// OnShutdown registers hooks; they run in registration order.
func (s *Server) OnShutdown(name string, hook ShutdownHook) {
	s.hooks = append(s.hooks, namedHook{name: name, run: hook})
}

// RunUntilSignal serves until SIGINT or SIGTERM.
func (s *Server) RunUntilSignal() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("%s: listen on %s: %w", s.name, s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve takes ownership of ln and returns once the server has shut down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		s.log.Infof("%s service listening on %s", s.name, ln.Addr())
		serveErr <- s.http.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: serve: %w", s.name, err)
	case <-ctx.Done():
	}

	s.log.Infof("shutting down %s service...", s.name)
	return s.shutdown()
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	drainCtx, drainCancel := context.WithTimeout(shutdownCtx, s.drainTimeout)
	defer drainCancel()

	s.http.SetKeepAlivesEnabled(false)

	var errs []error
	for _, hook := range s.hooks {
		if err := hook.run(drainCtx); err != nil {
			s.log.Errorf("%s service: shutdown hook %q failed: %v", s.name, hook.name, err)
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
		}
	}

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("%s service forced to shutdown: %v", s.name, err)
		errs = append(errs, err)
	} else {
		s.log.Infof("%s service stopped gracefully", s.name)
	}
	return errors.Join(errs...)
}
