// Package options defines shared flag helpers for livegrid commands.
package options

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GridOptions are the flags shaping the grid every command builds. They are
// bound to viper keys so a config file or LIVEGRID_ variables can set them
// too.
type GridOptions struct {
	Rows      int
	Cols      int
	Demo      bool
	Debounce  string
	Verbosity int
}

// AddGridArgs registers the grid flags as persistent flags of cmd.
func AddGridArgs(cmd *cobra.Command, o *GridOptions) {
	flags := cmd.PersistentFlags()
	flags.IntVar(&o.Rows, "rows", 10, "Number of rows.")
	flags.IntVar(&o.Cols, "cols", 5, "Number of columns.")
	flags.BoolVar(&o.Demo, "demo", false, "Seed the grid with demo values.")
	flags.StringVar(&o.Debounce, "debounce", "500ms", "How long edit input must be idle before the preview refreshes.")
	flags.CountVarP(&o.Verbosity, "verbose", "v", "Log verbosity, repeat for more.")
}

// BindGridArgs makes flags the user set on cmd take precedence over the
// config file and environment.
func BindGridArgs(cmd *cobra.Command, v *viper.Viper) error {
	for key, flag := range map[string]string{
		"rows":      "rows",
		"cols":      "cols",
		"demo":      "demo",
		"debounce":  "debounce",
		"verbosity": "verbose",
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// OutputOptions select how a grid is printed.
type OutputOptions struct {
	Mode string
}

// AddOutputArgs registers the output flag on cmd.
func AddOutputArgs(cmd *cobra.Command, o *OutputOptions) {
	cmd.Flags().StringVarP(&o.Mode, "output", "o", "values",
		"Output format. One of 'values', 'inputs' or 'json'.")
}
