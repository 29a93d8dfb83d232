package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	rerrors "github.com/vango-dev/waypoint/internal/errors"
)

// RouteConfig is the declarative form of a Route, loaded from JSON or
// YAML. Handlers are referenced by name and resolved against a
// HandlerRegistry.
type RouteConfig struct {
	ID            string            `json:"id,omitempty" yaml:"id,omitempty"`
	Path          string            `json:"path,omitempty" yaml:"path,omitempty"`
	Index         bool              `json:"index,omitempty" yaml:"index,omitempty"`
	CaseSensitive bool              `json:"caseSensitive,omitempty" yaml:"caseSensitive,omitempty"`
	Strict        bool              `json:"strict,omitempty" yaml:"strict,omitempty"`
	ErrorBoundary bool              `json:"errorBoundary,omitempty" yaml:"errorBoundary,omitempty"`
	Loader        string            `json:"loader,omitempty" yaml:"loader,omitempty"`
	Action        string            `json:"action,omitempty" yaml:"action,omitempty"`
	Revalidate    string            `json:"shouldRevalidate,omitempty" yaml:"shouldRevalidate,omitempty"`
	Middleware    []string          `json:"middleware,omitempty" yaml:"middleware,omitempty"`
	ParamTypes    map[string]string `json:"paramTypes,omitempty" yaml:"paramTypes,omitempty"`
	Handle        map[string]any    `json:"handle,omitempty" yaml:"handle,omitempty"`
	Children      []RouteConfig     `json:"children,omitempty" yaml:"children,omitempty"`
}

// routeFile is the top-level shape of a route config file.
type routeFile struct {
	Routes []RouteConfig `json:"routes" yaml:"routes"`
}

// HandlerRegistry resolves handler names used in RouteConfig.
type HandlerRegistry struct {
	Loaders          map[string]LoaderFunc
	Actions          map[string]ActionFunc
	ShouldRevalidate map[string]ShouldRevalidateFunc
	Middleware       map[string]Middleware
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		Loaders:          make(map[string]LoaderFunc),
		Actions:          make(map[string]ActionFunc),
		ShouldRevalidate: make(map[string]ShouldRevalidateFunc),
		Middleware:       make(map[string]Middleware),
	}
}

// Loader registers a loader under name.
func (h *HandlerRegistry) Loader(name string, fn LoaderFunc) *HandlerRegistry {
	h.Loaders[name] = fn
	return h
}

// Action registers an action under name.
func (h *HandlerRegistry) Action(name string, fn ActionFunc) *HandlerRegistry {
	h.Actions[name] = fn
	return h
}

// Use registers a middleware under name.
func (h *HandlerRegistry) Use(name string, mw Middleware) *HandlerRegistry {
	h.Middleware[name] = mw
	return h
}

// LoadRouteConfig reads a route config file. The format follows the
// extension: .json, or .yaml/.yml.
func LoadRouteConfig(path string) ([]RouteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	routes, err := ParseRouteConfig(data, format)
	if err != nil {
		var e *rerrors.Error
		if errors.As(err, &e) {
			return nil, e.WithFile(path)
		}
		return nil, err
	}
	return routes, nil
}

// ParseRouteConfig parses route configs from data. The document is
// either a list of routes or an object with a "routes" list.
func ParseRouteConfig(data []byte, format string) ([]RouteConfig, error) {
	var (
		routes []RouteConfig
		file   routeFile
	)

	switch format {
	case "json":
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(data, &routes); err != nil {
				return nil, invalidConfig(err)
			}
			return routes, nil
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, invalidConfig(err)
		}
	case "yaml", "yml":
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, invalidConfig(err)
		}
		if len(root.Content) > 0 && root.Content[0].Kind == yaml.SequenceNode {
			if err := root.Content[0].Decode(&routes); err != nil {
				return nil, invalidConfig(err)
			}
			return routes, nil
		}
		if err := root.Decode(&file); err != nil {
			return nil, invalidConfig(err)
		}
	default:
		return nil, rerrors.New("W301").
			WithDetail(fmt.Sprintf("unsupported format %q", format)).
			WithSuggestion("Use a .json, .yaml or .yml file")
	}
	return file.Routes, nil
}

func invalidConfig(err error) error {
	return rerrors.New("W301").WithDetail(err.Error()).Wrap(err)
}

// BuildRoutes resolves configs against registry. A loader or action
// reference that the registry doesn't know is an error; when Loader or
// Action is empty, a handler registered under the route's ID is used.
func BuildRoutes(configs []RouteConfig, registry *HandlerRegistry) ([]Route, error) {
	if registry == nil {
		registry = NewHandlerRegistry()
	}
	routes := make([]Route, 0, len(configs))
	for _, cfg := range configs {
		r, err := buildRoute(cfg, registry)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func buildRoute(cfg RouteConfig, reg *HandlerRegistry) (Route, error) {
	r := Route{
		ID:            cfg.ID,
		Path:          cfg.Path,
		Index:         cfg.Index,
		CaseSensitive: cfg.CaseSensitive,
		Strict:        cfg.Strict,
		ErrorBoundary: cfg.ErrorBoundary,
		ParamTypes:    cfg.ParamTypes,
	}
	if cfg.Handle != nil {
		r.Handle = cfg.Handle
	}

	unknown := func(kind, name string) error {
		return rerrors.New("W302").
			WithRoute(cfg.ID, cfg.Path).
			WithDetail(fmt.Sprintf("%s %q is not registered", kind, name))
	}

	switch {
	case cfg.Loader != "":
		fn, ok := reg.Loaders[cfg.Loader]
		if !ok {
			return Route{}, unknown("loader", cfg.Loader)
		}
		r.Loader = fn
	case cfg.ID != "":
		r.Loader = reg.Loaders[cfg.ID]
	}

	switch {
	case cfg.Action != "":
		fn, ok := reg.Actions[cfg.Action]
		if !ok {
			return Route{}, unknown("action", cfg.Action)
		}
		r.Action = fn
	case cfg.ID != "":
		r.Action = reg.Actions[cfg.ID]
	}

	if cfg.Revalidate != "" {
		fn, ok := reg.ShouldRevalidate[cfg.Revalidate]
		if !ok {
			return Route{}, unknown("shouldRevalidate", cfg.Revalidate)
		}
		r.ShouldRevalidate = fn
	}

	for _, name := range cfg.Middleware {
		mw, ok := reg.Middleware[name]
		if !ok {
			return Route{}, unknown("middleware", name)
		}
		r.Middleware = append(r.Middleware, mw)
	}

	for _, child := range cfg.Children {
		c, err := buildRoute(child, reg)
		if err != nil {
			return Route{}, err
		}
		r.Children = append(r.Children, c)
	}
	return r, nil
}

// ToConfig converts routes back to their declarative form. Handlers are
// referenced by route ID.
func ToConfig(routes []*Route) []RouteConfig {
	out := make([]RouteConfig, 0, len(routes))
	for _, r := range routes {
		cfg := RouteConfig{
			ID:            r.ID,
			Path:          r.Path,
			Index:         r.Index,
			CaseSensitive: r.CaseSensitive,
			Strict:        r.Strict,
			ErrorBoundary: r.ErrorBoundary,
			ParamTypes:    r.ParamTypes,
		}
		if r.Loader != nil {
			cfg.Loader = r.ID
		}
		if r.Action != nil {
			cfg.Action = r.ID
		}
		children := make([]*Route, len(r.Children))
		for i := range r.Children {
			children[i] = &r.Children[i]
		}
		cfg.Children = ToConfig(children)
		if len(cfg.Children) == 0 {
			cfg.Children = nil
		}
		out = append(out, cfg)
	}
	return out
}
