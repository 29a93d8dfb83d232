package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/routepath"
)

// matchView is the JSON shape of one matched route.
type matchView struct {
	RouteID      string            `json:"routeId"`
	Path         string            `json:"path,omitempty"`
	Pathname     string            `json:"pathname"`
	PathnameBase string            `json:"pathnameBase"`
	Params       map[string]string `json:"params"`
}

// matchResult is the JSON shape of a match run.
type matchResult struct {
	URL     string      `json:"url"`
	Matched bool        `json:"matched"`
	Matches []matchView `json:"matches,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func matchURL(tree *router.Tree, basename, rawURL string) matchResult {
	res := matchResult{URL: rawURL}
	pathname := routepath.Parse(rawURL).Pathname
	stripped, ok := routepath.StripBasename(pathname, basename)
	if !ok {
		res.Error = fmt.Sprintf("%q is outside basename %q", pathname, basename)
		return res
	}
	canon, err := routepath.CanonicalizePath(stripped)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	matches := tree.Match(canon.Path)
	res.Matched = matches != nil
	res.Matches = matchViews(matches)
	return res
}

func matchViews(matches []router.Match) []matchView {
	views := make([]matchView, 0, len(matches))
	for _, m := range matches {
		params := map[string]string(m.Params)
		if params == nil {
			params = map[string]string{}
		}
		views = append(views, matchView{
			RouteID:      m.RouteID(),
			Path:         m.Route.Path,
			Pathname:     m.Pathname,
			PathnameBase: m.PathnameBase,
			Params:       params,
		})
	}
	return views
}

func matchCmd(flags *projectFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match <url>...",
		Short: "Match URLs against the route tree",
		Long: `Match one or more URLs and print the matched routes, root first,
with their params.

Examples:
  waypoint match /users/42
  waypoint match --json /files/a/b.txt /about`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.load()
			if err != nil {
				return err
			}

			results := make([]matchResult, 0, len(args))
			for _, arg := range args {
				results = append(results, matchURL(p.tree, p.cfg.Basename, arg))
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, res := range results {
				printMatch(w, res)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

func printMatch(w io.Writer, res matchResult) {
	switch {
	case res.Error != "":
		warn(w, "%s: %s", res.URL, res.Error)
		return
	case !res.Matched:
		warn(w, "%s: no match (404)", res.URL)
		return
	}

	success(w, "%s", res.URL)
	for i, m := range res.Matches {
		info(w, "%*s%s  %s  base=%s", i*2, "", m.RouteID, m.Pathname, m.PathnameBase)
	}
	if leaf := res.Matches[len(res.Matches)-1]; len(leaf.Params) > 0 {
		keys := make([]string, 0, len(leaf.Params))
		for k := range leaf.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			info(w, "  %s = %q", k, leaf.Params[k])
		}
	}
}
