package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/scythe504/wavelength-backend/internal/config"
	"github.com/scythe504/wavelength-backend/internal/docstore"
	"github.com/scythe504/wavelength-backend/internal/random"
	"github.com/scythe504/wavelength-backend/internal/websocket"
)

const maxBodyBytes = 1 << 20

type Server struct {
	port          int
	allowedOrigin string
	publicURL     string

	store docstore.Store
	relay *websocket.Relay
	rng   random.Source
}

func New(cfg config.Config, store docstore.Store, rng random.Source) *Server {
	return &Server{
		port:          cfg.Port,
		allowedOrigin: cfg.AllowedOrigin,
		publicURL:     cfg.PublicURL,
		store:         store,
		relay:         websocket.NewRelay(store, cfg.AllowedOrigin),
		rng:           random.NewLocked(rng),
	}
}

// HTTPServer wraps the routes in an http.Server listening on the
// configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
