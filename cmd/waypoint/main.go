package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/waypoint/internal/config"
	"github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/router"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬ ┬┌─┐┬ ┬┌─┐┌─┐┬┌┐┌┌┬┐
  │││├─┤└┬┘├─┘│ ││││││ │
  └┴┘┴ ┴ ┴ ┴  └─┘┴┘└┘ ┴
`

// projectFlags are shared by every command that reads a route file.
type projectFlags struct {
	configPath string
	routesPath string
	basename   string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &projectFlags{}

	rootCmd := &cobra.Command{
		Use:   "waypoint",
		Short: "Inspect and exercise waypoint route trees",
		Long: `waypoint is the developer tool for waypoint routers.

It loads a route file (JSON or YAML) and lets you:

  • List routes and their ranked branches
  • Lint for shadowed routes and conflicting param types
  • Match URLs against the tree
  • Run a playground server that navigates with echo loaders`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to waypoint.json (default: search from the working directory)")
	pf.StringVarP(&flags.routesPath, "routes", "r", "", "Route file (overrides the config)")
	pf.StringVar(&flags.basename, "basename", "", "Basename the app is mounted under (overrides the config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		routesCmd(flags),
		lintCmd(flags),
		matchCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig resolves the tool config: an explicit --config, a
// waypoint.json found from the working directory, or the defaults.
func (f *projectFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	default:
		cfg, err = config.LoadFromWorkingDir()
		var werr *errors.Error
		if stderrors.As(err, &werr) && werr.Code == "W303" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if f.routesPath != "" {
		cfg.Routes = f.routesPath
	}
	if f.basename != "" {
		cfg.Basename = f.basename
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// project is a loaded config plus its route tree.
type project struct {
	cfg     *config.Config
	configs []router.RouteConfig
	routes  []router.Route
	tree    *router.Tree
}

func (f *projectFlags) load() (*project, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	path := cfg.Routes
	if f.routesPath == "" {
		path = cfg.RoutesPath()
	}
	configs, err := router.LoadRouteConfig(path)
	if err != nil {
		return nil, err
	}
	routes, err := router.BuildRoutes(configs, playgroundRegistry(configs))
	if err != nil {
		return nil, err
	}

	var opts []router.TreeOption
	if size := cfg.MatchCacheSize(); size > 0 {
		opts = append(opts, router.WithMatchCache(size))
	}
	tree, err := router.NewTree(routes, opts...)
	if err != nil {
		return nil, err
	}
	return &project{cfg: cfg, configs: configs, routes: routes, tree: tree}, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
