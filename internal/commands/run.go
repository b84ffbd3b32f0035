package commands

import (
	"github.com/spf13/cobra"

	"github.com/colelawrence/spreadsheet/internal/commands/options"
)

func addRun(topLevel *cobra.Command, e *env) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "run <script.toml>",
		Short: "Apply an edit script to a fresh grid and print the result.",
		Example: `
livegrid run moves.toml
livegrid run moves.toml -o inputs
livegrid run moves.toml --rows 20 --cols 8 -o json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := printer(cmd, oo)
			if err != nil {
				return err
			}
			g, err := e.runScript(cmd, args[0])
			if err != nil {
				return err
			}
			return p.Print(g.Snapshot())
		},
	}

	options.AddOutputArgs(cmd, oo)
	topLevel.AddCommand(cmd)
}
