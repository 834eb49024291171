package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/san-kum/ctrlsim/internal/statistics"
	"github.com/san-kum/ctrlsim/internal/ui"
)

const (
	urlParamId      = "id"
	urlParamName    = "name"
	urlParamMode    = "mode"
	indentationChar = "  "

	EndpointPathAlive = "/alive/"

	// bound on how long a handler waits for the frame goroutine
	defaultCommandTimeout = 2 * time.Second
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

// Server exposes a set of live simulator sessions over REST and prometheus.
type Server struct {
	sessions cmap.ConcurrentMap[string, *Session]
	registry *prometheus.Registry
	echo     *echo.Echo
	timeout  time.Duration
}

func NewServer() *Server {
	s := &Server{
		sessions: cmap.New[*Session](),
		registry: prometheus.NewRegistry(),
		timeout:  defaultCommandTimeout,
	}
	statistics.Register(s.registry, statistics.NewSimCollector(s))
	s.echo = s.createRestService()
	return s
}

func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Add registers a session; it does not start its goroutine.
func (s *Server) Add(sess *Session) error {
	if !s.sessions.SetIfAbsent(sess.ID, sess) {
		return fmt.Errorf("session %q already exists", sess.ID)
	}
	return nil
}

func (s *Server) Get(id string) (*Session, bool) { return s.sessions.Get(id) }

// Sessions returns every session ordered by id.
func (s *Server) Sessions() []*Session {
	items := s.sessions.Items()
	out := make([]*Session, 0, len(items))
	for _, sess := range items {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Readings implements statistics.Source. Sessions whose goroutine is not
// answering within the command timeout are left out of the scrape.
func (s *Server) Readings() []statistics.Reading {
	var out []statistics.Reading
	for _, sess := range s.Sessions() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		r, err := sess.reading(ctx)
		cancel()
		if err != nil {
			ui.Debug("skipping %s in scrape: %v", sess.ID, err)
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Server) createRestService() *echo.Echo {
	echoRest := echo.New()
	echoRest.HideBanner = true
	echoRest.HidePort = true

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())
	echoRest.Use(middleware.Recover())
	echoRest.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "ctrlsim",
		Registerer: s.registry,
	}))

	echoRest.GET(EndpointPathAlive, isAlive)
	echoRest.GET("/metrics/", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: s.registry,
	}))

	s.registerSimEndpoints(echoRest)

	return echoRest
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}

func returnBadRequest(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusBadRequest, &Result{
		Name:    "Bad request",
		Message: e.Error(),
	}, indentationChar)
}

// return the error message of an error
func returnError(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusInternalServerError, &Result{
		Name:    "Unknown Error",
		Message: e.Error(),
	}, indentationChar)
}
