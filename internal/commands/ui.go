package commands

import (
	"github.com/spf13/cobra"

	"github.com/colelawrence/spreadsheet/internal/tui"
	"github.com/colelawrence/spreadsheet/packages/spreadsheet"
)

func addUI(topLevel *cobra.Command, e *env) {
	cmd := &cobra.Command{
		Use:   "ui [script.toml]",
		Short: "Open the interactive grid, optionally prepared by a script.",
		Example: `
livegrid ui
livegrid ui --demo --rows 13 --cols 4
livegrid ui moves.toml
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				g   *spreadsheet.Grid
				err error
			)
			if len(args) == 1 {
				g, err = e.runScript(cmd, args[0])
			} else {
				g, err = spreadsheet.New(e.settings.Size(), e.settings.Options()...)
			}
			if err != nil {
				return err
			}
			return tui.Run(g)
		},
	}

	topLevel.AddCommand(cmd)
}
