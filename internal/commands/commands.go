// Package commands holds the livegrid command tree.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/colelawrence/spreadsheet/internal/commands/options"
	"github.com/colelawrence/spreadsheet/internal/config"
	"github.com/colelawrence/spreadsheet/internal/render"
	"github.com/colelawrence/spreadsheet/packages/spreadsheet"
)

var cliLog = commonlog.GetLogger("livegrid.cli")

// env is what every sub-command shares once the root has loaded settings.
type env struct {
	grid     options.GridOptions
	settings config.Settings
}

func New() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:   "livegrid",
		Short: "A reactive grid of formulas on the command line.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	options.AddGridArgs(cmd, &e.grid)

	addCommands(cmd, e)
	return cmd
}

func addCommands(topLevel *cobra.Command, e *env) {
	addRun(topLevel, e)
	addWatch(topLevel, e)
	addUI(topLevel, e)
	addVersion(topLevel)
}

func (e *env) load(cmd *cobra.Command) error {
	v := config.NewViper()
	if err := options.BindGridArgs(cmd, v); err != nil {
		return err
	}
	settings, err := config.Load(v)
	if err != nil {
		return err
	}
	e.settings = settings

	commonlog.Configure(settings.Verbosity, nil)
	cliLog.Debugf("settings: %+v", settings)
	return nil
}

// runScript loads and runs the script at path, printing "log" steps to cmd.
func (e *env) runScript(cmd *cobra.Command, path string) (*spreadsheet.Grid, error) {
	script, err := config.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return script.Run(e.settings, func(line string) {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	})
}

func printer(cmd *cobra.Command, o *options.OutputOptions) (*render.Printer, error) {
	mode := render.Mode(o.Mode)
	switch mode {
	case render.Values, render.Inputs, render.JSON:
	default:
		return nil, fmt.Errorf("unknown output %q", o.Mode)
	}
	p := render.NewPrinter(mode)
	p.Out = cmd.OutOrStdout()
	return p, nil
}
