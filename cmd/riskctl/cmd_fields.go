package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/oncorisk/pkg/common/config"
	"github.com/synaptica-ai/oncorisk/pkg/form"
)

func newFieldsCmd(_ *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the questionnaire fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := form.LoadCatalog(config.Load().FieldCatalogPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range catalog.Fields() {
				fmt.Fprintf(out, "%s\n", f.Name)
				if f.Help != "" {
					fmt.Fprintf(out, "    %s\n", f.Help)
				}
			}
			return nil
		},
	}
}
