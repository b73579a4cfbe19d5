// Package cli implements the docctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/docplan/internal/document"
	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/internal/document/render"
)

var version = "dev"

// Planner builds the layout plan of a stored document.
type Planner interface {
	Plan(ctx context.Context, kind document.Kind, id int64) (*layout.Plan, error)
}

// Renderer paints plans as HTML and PDF.
type Renderer interface {
	HTML(plan *layout.Plan) (string, error)
	Render(ctx context.Context, plan *layout.Plan) (render.Result, error)
}

// Queue submits and inspects render jobs.
type Queue interface {
	Enqueue(ctx context.Context, kind document.Kind, id int64) (document.RenderJob, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
}

// Runtime carries the collaborators a command needs.
type Runtime struct {
	Planner  Planner
	Renderer Renderer
	Queue    Queue
}

// Factory builds the Runtime lazily so that help and flag errors never touch
// the database. The returned func releases resources.
type Factory func(ctx context.Context) (*Runtime, func(), error)

// NewRootCommand assembles the docctl command tree.
func NewRootCommand(factory Factory) *cobra.Command {
	root := &cobra.Command{
		Use:   "docctl",
		Short: "Plan, render and enqueue GST documents",
		Long: `docctl drives the document composition pipeline from the shell.

Documents are addressed by kind and id. Kinds accept the PascalCase name
(SaleInvoice) or its kebab-case alias (sale-invoice).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPlanCommand(factory),
		newRenderCommand(factory),
		newEnqueueCommand(factory),
		newQueueCommand(factory),
		newKindsCommand(),
	)
	return root
}

func newPlanCommand(factory Factory) *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:     "plan <kind> <id>",
		Short:   "Print the layout plan of a document as JSON",
		Example: "  docctl plan sale-invoice 12",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseDocument(args)
			if err != nil {
				return err
			}
			rt, done, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			plan, err := rt.Planner.Plan(cmd.Context(), kind, id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan, !compact)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON without indentation")
	return cmd
}

func newRenderCommand(factory Factory) *cobra.Command {
	var (
		output string
		html   bool
	)
	cmd := &cobra.Command{
		Use:   "render <kind> <id>",
		Short: "Render a document to PDF",
		Example: `  # Write SaleInvoice_0012.pdf in the current directory
  docctl render sale-invoice 12

  # Write the intermediate HTML instead
  docctl render purchase-order 7 --html -o po.html`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseDocument(args)
			if err != nil {
				return err
			}
			rt, done, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			plan, err := rt.Planner.Plan(cmd.Context(), kind, id)
			if err != nil {
				return err
			}

			var data []byte
			name := output
			if html {
				page, err := rt.Renderer.HTML(plan)
				if err != nil {
					return err
				}
				data = []byte(page)
				if name == "" {
					name = strings.TrimSuffix(plan.FileName, ".pdf") + ".html"
				}
			} else {
				res, err := rt.Renderer.Render(cmd.Context(), plan)
				if err != nil {
					return err
				}
				data = res.PDF
				if name == "" {
					name = res.FileName
				}
			}
			if name == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes, %d page(s))\n", name, len(data), plan.Pages)
			for _, w := range plan.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: the document file name)")
	cmd.Flags().BoolVar(&html, "html", false, "write the intermediate HTML instead of PDF")
	return cmd
}

func newEnqueueCommand(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <kind> <id>",
		Short: "Submit an asynchronous render job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseDocument(args)
			if err != nil {
				return err
			}
			rt, done, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			if rt.Queue == nil {
				return errors.New("render queue not configured")
			}
			job, err := rt.Queue.Enqueue(cmd.Context(), kind, id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), job, true)
		},
	}
}

func newQueueCommand(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show render queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, done, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			if rt.Queue == nil {
				return errors.New("render queue not configured")
			}
			stats, err := rt.Queue.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats, true)
		},
	}
}

func newKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List supported document kinds",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, k := range document.Kinds() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-17s %s\n", k, k.Alias(), k.Title())
			}
		},
	}
}

func parseDocument(args []string) (document.Kind, int64, error) {
	kind, err := document.ParseKind(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
	if err != nil || id < 0 {
		return "", 0, fmt.Errorf("document id %q must be a non-negative integer", args[1])
	}
	return kind, id, nil
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
