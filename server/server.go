package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-gateway/custody"
	"github.com/jrsteele09/go-auth-gateway/federation"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	"github.com/jrsteele09/go-auth-gateway/proxy"
)

// Server is the browser-facing HTTP surface of the gateway. It holds no
// per-request state: the only durable state lives in the browser's cookie
// jar, written through the custody manager.
type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	forwarder *proxy.Forwarder
	custody   *custody.Manager
	google    *federation.GoogleProvider
	bridge    *federation.Bridge

	// httpClient serves the /api/me and /api/logout read-through calls
	httpClient *http.Client
}

// New wires the gateway surface. google and bridge may be nil when Google
// federation is not configured; the federation routes are then omitted.
func New(cfg config.Config, forwarder *proxy.Forwarder, custodyMgr *custody.Manager, google *federation.GoogleProvider, bridge *federation.Bridge) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		config:     cfg,
		forwarder:  forwarder,
		custody:    custodyMgr,
		google:     google,
		bridge:     bridge,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
