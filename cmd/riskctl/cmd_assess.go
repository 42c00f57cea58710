package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/synaptica-ai/oncorisk/pkg/bootstrap"
	"github.com/synaptica-ai/oncorisk/pkg/form"
	"github.com/synaptica-ai/oncorisk/pkg/session"
)

type assessFlags struct {
	fields  []string
	explain bool
	asJSON  bool
}

func newAssessCmd(g *globalFlags) *cobra.Command {
	a := &assessFlags{}
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Fill the form, predict and optionally explain",
		Example: `  riskctl assess --field "Tumor Size=22" --field "PR Status=1"
  riskctl assess --field "HER2 Status=0" --explain --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssess(cmd, g, a)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&a.fields, "field", "f", nil, `Field value as "Name=value" (repeatable)`)
	f.BoolVar(&a.explain, "explain", false, "Request an explanation after the prediction")
	f.BoolVar(&a.asJSON, "json", false, "Print the session view as JSON")
	return cmd
}

func runAssess(cmd *cobra.Command, g *globalFlags, a *assessFlags) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(ctx, cfg, "riskctl")
	if err != nil {
		return err
	}
	defer services.Close()

	edits, err := parseFields(a.fields)
	if err != nil {
		return err
	}

	c := session.New(uuid.New().String(), services.Client, services.Client, services.SessionOptions()...)
	defer c.Close()

	for _, e := range edits {
		if err := c.EditField(e.name, e.value); err != nil {
			return fmt.Errorf("field %q: %w", e.name, err)
		}
	}

	if err := c.Predict(ctx); err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	if a.explain && c.State() != session.Explained {
		if err := c.Explain(ctx); err != nil {
			return fmt.Errorf("explain: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	view := c.View()
	if a.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	printView(out, view)
	return nil
}

type fieldEdit struct {
	name  form.FieldName
	value string
}

func parseFields(raw []string) ([]fieldEdit, error) {
	edits := make([]fieldEdit, 0, len(raw))
	for _, r := range raw {
		name, value, ok := strings.Cut(r, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf(`--field must look like "Name=value", got %q`, r)
		}
		// Values are raw text and go to the form unchanged.
		edits = append(edits, fieldEdit{name: form.FieldName(name), value: value})
	}
	return edits, nil
}

func printView(out io.Writer, view session.View) {
	if view.Verdict != nil {
		fmt.Fprintf(out, "Verdict:     %s\n", view.Verdict.Label)
	}
	if len(view.Contributions) > 0 {
		fmt.Fprintf(out, "Contributions:\n")
		width := 0
		for _, c := range view.Contributions {
			if len(c.Label) > width {
				width = len(c.Label)
			}
		}
		for _, c := range view.Contributions {
			fmt.Fprintf(out, "  %-*s  %s\n", width, c.Label, c.Display)
		}
	}
	if view.Suggestion != "" {
		fmt.Fprintf(out, "Suggestion:  %s\n", view.Suggestion)
	}
}
