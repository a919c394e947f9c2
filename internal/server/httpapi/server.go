// Package httpapi hosts the public HTTP surface of the media vault: upload
// ticket issuance, asset lifecycle operations, and the download token
// broker. Transport concerns stop here; all semantics live in the services.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avern/mediavault/internal/logging"
	"github.com/avern/mediavault/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address   string
	handler   *Handler
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(address string, logger logging.Logger, assets *services.AssetService, downloads *services.DownloadService, secretKey string) *Server {
	return &Server{
		address:   address,
		handler:   NewHandler(assets, downloads, logger),
		logger:    logger.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.handler.Routes(s.jwtSecret),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
