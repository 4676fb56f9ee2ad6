package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alantheprice/dialoguegen/pkg/agents"
	"github.com/alantheprice/dialoguegen/pkg/configuration"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the available agents and the model each would use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(false)
		if err != nil {
			return err
		}
		clientType, model, err := configuration.ResolveProviderModel(app.config, providerFlag, modelFlag)
		if err != nil {
			return err
		}

		registry := agents.DefaultRegistry()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tPROVIDER\tMODEL\tDESCRIPTION")
		for _, agentType := range registry.List() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", agentType, clientType, model, registry.Description(agentType))
		}
		return tw.Flush()
	},
}
