package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/middleware"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

func serveCmd(flags *projectFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the navigation playground server",
		Long: `Run a playground server around a router built from the route file.
Every loader and action referenced by the file echoes its inputs.

Endpoints:
  GET  /api/routes       normalized route config
  GET  /api/match?path=  match a URL
  GET  /api/state        current router state
  POST /api/navigate     {"to": "/users/1", "replace": false, "method": "post", "form": {}}
  POST /api/fetch        {"key": "k", "href": "/users/1"}
  POST /api/revalidate   reload the current location
  GET  /ws               router state stream; send {"type": "navigate", "to": "/about"}
  GET  /metrics          Prometheus metrics (when metrics.enabled)

Examples:
  waypoint serve
  waypoint serve --port=8080 --routes=routes.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.load()
			if err != nil {
				return err
			}
			if port > 0 {
				p.cfg.Server.Port = port
			}
			if host != "" {
				p.cfg.Server.Host = host
			}
			return runServe(cmd, p)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from waypoint.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from waypoint.json)")

	return cmd
}

func runServe(cmd *cobra.Command, p *project) error {
	logger := newLogger(cmd.ErrOrStderr(), p.cfg.Level())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := newPlayground(ctx, p, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	srv := &http.Server{
		Addr:              p.cfg.Address(),
		Handler:           pg.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	w := cmd.OutOrStdout()
	printBanner(w)
	success(w, "Playground listening on http://%s", p.cfg.Address())
	info(w, "%d routes, %d branches", countRoutes(p.tree), len(p.tree.Branches()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCh:
		fmt.Fprintln(w, "\n  Shutting down...")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	}
}

func countRoutes(tree *router.Tree) int {
	n := 0
	tree.Walk(func(*router.Route, int) { n++ })
	return n
}

// playground serves a navigation.Router over HTTP and WebSocket.
type playground struct {
	project  *project
	nav      *navigation.Router
	metrics  *middleware.Metrics
	registry *prometheus.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newPlayground(ctx context.Context, p *project, logger *slog.Logger) (*playground, error) {
	pg := &playground{
		project: p,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mw := []router.Middleware{middleware.Logging(logger), middleware.OpenTelemetry()}
	var hook navigation.NavigationMetrics
	if p.cfg.Metrics.Enabled {
		pg.registry = prometheus.NewRegistry()
		pg.metrics = middleware.NewMetrics(
			middleware.WithRegistry(pg.registry),
			middleware.WithNamespace(p.cfg.Metrics.Namespace),
		)
		mw = append(mw, pg.metrics.Middleware())
		hook = pg.metrics
	}

	h := history.NewMemoryHistory(history.MemoryOptions{
		InitialEntries: []string{routepath.PrependBasename("/", p.cfg.Basename)},
	})
	nav, err := navigation.New(navigation.Config{
		Tree:         p.tree,
		History:      h,
		Basename:     p.cfg.Basename,
		Logger:       logger,
		Middleware:   mw,
		MaxRedirects: p.cfg.MaxRedirects,
		Metrics:      hook,
	})
	if err != nil {
		return nil, err
	}
	if err := nav.Initialize(ctx); err != nil {
		nav.Dispose()
		return nil, err
	}
	pg.nav = nav
	return pg, nil
}

// Close disposes the router.
func (pg *playground) Close() {
	pg.nav.Dispose()
}

// Handler returns the playground's HTTP handler.
func (pg *playground) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/routes", pg.handleRoutes)
		r.Get("/match", pg.handleMatch)
		r.Get("/state", pg.handleState)
		r.Post("/navigate", pg.handleNavigate)
		r.Post("/fetch", pg.handleFetch)
		r.Post("/revalidate", pg.handleRevalidate)
	})
	r.Get("/ws", pg.handleWebSocket)
	if pg.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(pg.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (pg *playground) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, router.ToConfig(pg.project.tree.Routes()))
}

func (pg *playground) handleMatch(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing path"})
		return
	}
	res := matchURL(pg.project.tree, pg.project.cfg.Basename, path)
	if pg.metrics != nil {
		pg.metrics.RecordCacheSize(pg.project.tree.CacheLen())
	}
	status := http.StatusOK
	if !res.Matched {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}

func (pg *playground) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(pg.nav.State()))
}

// submitRequest is the body of /api/navigate and /api/fetch.
type submitRequest struct {
	To      string            `json:"to"`
	Key     string            `json:"key"`
	Href    string            `json:"href"`
	RouteID string            `json:"routeId"`
	Replace bool              `json:"replace"`
	Method  string            `json:"method"`
	Form    map[string]string `json:"form"`
}

func (s submitRequest) options() []navigation.NavigateOption {
	var opts []navigation.NavigateOption
	if s.Replace {
		opts = append(opts, navigation.WithReplace())
	}
	if s.Method != "" {
		values := url.Values{}
		for k, v := range s.Form {
			values.Set(k, v)
		}
		opts = append(opts, navigation.WithFormData(s.Method, values))
	}
	return opts
}

func (pg *playground) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	err := pg.nav.Navigate(r.Context(), req.To, req.options()...)
	pg.respond(w, err)
}

func (pg *playground) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing key"})
		return
	}
	err := pg.nav.Fetch(r.Context(), req.Key, req.RouteID, req.Href, req.options()...)
	pg.respond(w, err)
}

func (pg *playground) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	pg.respond(w, pg.nav.Revalidate(r.Context()))
}

// respond writes the router state, or the error with the state it left.
func (pg *playground) respond(w http.ResponseWriter, err error) {
	view := newStateView(pg.nav.State())
	if err == nil {
		writeJSON(w, http.StatusOK, view)
		return
	}

	var ext *navigation.ExternalRedirectError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &ext):
		writeJSON(w, http.StatusOK, map[string]any{"redirect": ext.Location, "state": view})
		return
	case errors.Is(err, navigation.ErrBlocked), errors.Is(err, navigation.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, navigation.ErrRouterErrored):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		status = 499
	}
	writeJSON(w, status, map[string]any{"error": err.Error(), "state": view})
}

// wsMessage is a client message on /ws.
type wsMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
}

func (pg *playground) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := pg.upgrader.Upgrade(w, r, nil)
	if err != nil {
		pg.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan navigation.State, 16)
	unsubscribe := pg.nav.Subscribe(func(s navigation.State) {
		select {
		case updates <- s:
		default:
			pg.logger.Warn("dropping state update", "remote", r.RemoteAddr)
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go pg.readLoop(conn, done)

	if err := pg.write(conn, pg.nav.State()); err != nil {
		return
	}
	for {
		select {
		case s := <-updates:
			if err := pg.write(conn, s); err != nil {
				pg.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-done:
			return
		}
	}
}

func (pg *playground) write(conn *websocket.Conn, s navigation.State) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(newStateView(s))
}

func (pg *playground) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				pg.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var err error
		switch msg.Type {
		case "navigate":
			err = pg.nav.Navigate(context.Background(), msg.To)
		case "back":
			pg.nav.Go(-1)
		case "forward":
			pg.nav.Go(1)
		case "revalidate":
			err = pg.nav.Revalidate(context.Background())
		default:
			pg.logger.Warn("unknown websocket message", "type", msg.Type)
		}
		if err != nil {
			pg.logger.Info("navigation failed", "type", msg.Type, "to", msg.To, "error", err)
		}
	}
}

// stateView is the JSON shape of navigation.State.
type stateView struct {
	Action       string                 `json:"action"`
	Location     string                 `json:"location"`
	Key          string                 `json:"key"`
	Matches      []matchView            `json:"matches"`
	Navigation   string                 `json:"navigation"`
	Revalidation string                 `json:"revalidation"`
	LoaderData   map[string]any         `json:"loaderData"`
	ActionData   map[string]any         `json:"actionData,omitempty"`
	Errors       map[string]string      `json:"errors,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Status       int                    `json:"status"`
	Fetchers     map[string]fetcherView `json:"fetchers,omitempty"`
}

type fetcherView struct {
	State string `json:"state"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func newStateView(s navigation.State) stateView {
	v := stateView{
		Action:       string(s.HistoryAction),
		Location:     s.Location.String(),
		Key:          s.Location.Key,
		Matches:      matchViews(s.Matches),
		Navigation:   string(s.Navigation.Phase),
		Revalidation: string(s.Revalidation),
		LoaderData:   s.LoaderData,
		ActionData:   s.ActionData,
		Status:       http.StatusOK,
	}
	if len(s.Errors) > 0 {
		v.Errors = make(map[string]string, len(s.Errors))
		for id, err := range s.Errors {
			v.Errors[id] = err.Error()
			if st := router.StatusOf(err); st > v.Status {
				v.Status = st
			}
		}
	}
	if s.Error != nil {
		v.Error = s.Error.Error()
		v.Status = router.StatusOf(s.Error)
	}
	if len(s.Fetchers) > 0 {
		v.Fetchers = make(map[string]fetcherView, len(s.Fetchers))
		for key, f := range s.Fetchers {
			fv := fetcherView{State: string(f.Phase), Data: f.Data}
			if f.Err != nil {
				fv.Error = f.Err.Error()
			}
			v.Fetchers[key] = fv
		}
	}
	return v
}
