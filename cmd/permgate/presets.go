package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"permgate/internal/permission"
	"permgate/internal/preset"
)

func presetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List, show and recommend built-in presets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List presets with their security level",
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSECURITY\tSCORE\tISOLATION\tDESCRIPTION")
			for _, info := range preset.List() {
				score := permission.SecurityScore(preset.MustGet(info.Name))
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					color.CyanString(string(info.Name)), info.SecurityLevel, score, info.Isolation, info.Description)
			}
			tw.Flush()
		},
	})

	var format string
	show := &cobra.Command{
		Use:   "show [name]",
		Short: "Print a preset matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := preset.Get(args[0])
			if err != nil {
				return err
			}
			return printEncoded(m, format)
		},
	}
	show.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml or json")
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:   "recommend [task-type]",
		Short: "Recommend a preset for a task type (analysis, bug-fix, deployment, ...)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := preset.Recommend(preset.TaskType(args[0]))
			fmt.Printf("%s (isolation: %s)\n", name, preset.IsolationFor(name))
		},
	})

	return cmd
}
