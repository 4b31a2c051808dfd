package httpserver

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct {
	mux     *chi.Mux
	timeout time.Duration
}

// New builds the router. requestTimeout must exceed the upstream call timeout so a slow
// upstream surfaces as 504 from the handler rather than being cut off here. It bounds every
// route except /api/search, which carries its own deadline.
func New(requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 35 * time.Second
	}
	m := chi.NewRouter()

	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(CORS)
	m.Use(SecurityHeaders(DefaultCSP))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m, timeout: requestTimeout}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

// MountStatic serves dir at / when it exists; a missing directory is logged and skipped.
func (s *Server) MountStatic(dir string) {
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		log.Warn().Str("dir", dir).Msg("static directory not found; not serving assets")
		return
	}
	s.mux.With(Timeout(s.timeout)).Handle("/*", http.FileServer(http.Dir(dir)))
}
