package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/waypoint/pkg/router"
)

func routesCmd(flags *projectFlags) *cobra.Command {
	var (
		branches bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the route tree",
		Long: `List the routes of the route file as a tree, or with --branches
the ranked branches in the order the matcher tries them.

Examples:
  waypoint routes
  waypoint routes --branches
  waypoint routes --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.load()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(router.ToConfig(p.tree.Routes()))
			case branches:
				printBranches(w, p.tree)
			default:
				printTree(w, p.tree)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&branches, "branches", "b", false, "List ranked branches")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the normalized route config as JSON")

	return cmd
}

func printTree(w io.Writer, tree *router.Tree) {
	tree.Walk(func(r *router.Route, depth int) {
		path := r.Path
		switch {
		case r.Index:
			path = "(index)"
		case path == "":
			path = "(layout)"
		}

		var marks []string
		if r.Loader != nil {
			marks = append(marks, "loader")
		}
		if r.Action != nil {
			marks = append(marks, "action")
		}
		if r.ErrorBoundary {
			marks = append(marks, "boundary")
		}
		line := fmt.Sprintf("%s%s  %s", strings.Repeat("  ", depth), path, r.ID)
		if len(marks) > 0 {
			line += "  [" + strings.Join(marks, " ") + "]"
		}
		fmt.Fprintln(w, line)
	})
}

func printBranches(w io.Writer, tree *router.Tree) {
	for i, b := range tree.Branches() {
		splat := ""
		if b.HasSplat() {
			splat = " splat"
		}
		fmt.Fprintf(w, "%3d  %-32s  score=%d%s  %s\n", i+1, b.Path(), b.Score(), splat, b.Leaf().ID)
	}
}

func lintCmd(flags *projectFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check the route tree for shadowed routes",
		Long: `Report branches that can never match because a higher-ranked
branch has the same shape, and branches that constrain one param to
different types. Exits non-zero when issues are found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.load()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			issues := p.tree.Lint()
			if len(issues) == 0 {
				success(w, "%d branches, no issues", len(p.tree.Branches()))
				return nil
			}
			for _, issue := range issues {
				warn(w, "%s", router.FormatLintIssue(issue))
			}
			return fmt.Errorf("%d lint issue(s)", len(issues))
		},
	}
}
