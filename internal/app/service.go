package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"whisper-asr-webservice/internal/api/server"
	"whisper-asr-webservice/internal/app/lifecycle"
	"whisper-asr-webservice/internal/config"
)

// ShutdownGrace bounds how long in-flight requests may finish after a stop signal
const ShutdownGrace = 30 * time.Second

// Service is the assembled webservice
type Service struct {
	Config  *config.Config
	Server  *server.Server
	Manager *lifecycle.Manager
	Logger  *zap.Logger
}

// Run serves HTTP and sweeps idle models until ctx is done, then drains requests
// and unloads every model
func (s *Service) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.Manager.Run(sweepCtx)

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Server.Start() }()

	var err error
	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		s.Logger.Info("stop requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	if shutdownErr := s.Server.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if unloadErr := s.Manager.Shutdown(shutdownCtx); unloadErr != nil {
		s.Logger.Error("models still held at shutdown", zap.Error(unloadErr))
		if err == nil {
			err = unloadErr
		}
	}
	return err
}
