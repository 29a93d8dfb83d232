package main

import (
	"context"
	"net/http"

	"github.com/vango-dev/waypoint/pkg/router"
)

// playgroundRegistry registers an echo handler for every handler name a
// route file references, so any route file can be navigated without
// application code.
func playgroundRegistry(configs []router.RouteConfig) *router.HandlerRegistry {
	reg := router.NewHandlerRegistry()
	passthrough := router.MiddlewareFunc(func(ctx context.Context, _ *router.Invocation, next router.Next) (any, error) {
		return next(ctx)
	})

	var walk func([]router.RouteConfig)
	walk = func(cs []router.RouteConfig) {
		for _, c := range cs {
			if c.Loader != "" {
				reg.Loader(c.Loader, echoLoader(c.Loader))
			}
			if c.Action != "" {
				reg.Action(c.Action, echoAction(c.Action))
			}
			if c.Revalidate != "" {
				reg.ShouldRevalidate[c.Revalidate] = func(a router.ShouldRevalidateArgs) bool {
					return a.DefaultShouldRevalidate
				}
			}
			for _, name := range c.Middleware {
				reg.Use(name, passthrough)
			}
			walk(c.Children)
		}
	}
	walk(configs)
	return reg
}

func echoLoader(name string) router.LoaderFunc {
	return func(_ context.Context, a router.Args) (any, error) {
		out := map[string]any{
			"loader": name,
			"route":  a.RouteID,
			"params": a.Params,
		}
		if a.Request != nil {
			out["url"] = a.Request.URL.RequestURI()
		}
		return out, nil
	}
}

func echoAction(name string) router.ActionFunc {
	return func(_ context.Context, a router.Args) (any, error) {
		out := map[string]any{
			"action": name,
			"route":  a.RouteID,
		}
		if req := a.Request; req != nil {
			out["method"] = req.Method
			if err := req.ParseForm(); err != nil {
				return nil, router.NewErrorResponse(http.StatusBadRequest, err.Error())
			}
			out["form"] = req.PostForm
		}
		return out, nil
	}
}
