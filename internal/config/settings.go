// Package config loads livegrid settings and edit scripts.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/colelawrence/spreadsheet/packages/spreadsheet"
)

// Settings are the knobs of the livegrid commands.
type Settings struct {
	Rows      int
	Cols      int
	Debounce  time.Duration
	Verbosity int
	Demo      bool
}

// Size is the grid size of s.
func (s Settings) Size() spreadsheet.Size {
	return spreadsheet.Size{Rows: s.Rows, Cols: s.Cols}
}

// Options turns s into grid construction options.
func (s Settings) Options() []spreadsheet.Option {
	opts := []spreadsheet.Option{spreadsheet.WithDebounce(s.Debounce)}
	if s.Demo {
		opts = append(opts, spreadsheet.WithSeed(spreadsheet.DemoSeed()))
	}
	return opts
}

// NewViper returns a viper instance with the livegrid defaults, config file
// search paths and environment binding in place.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("rows", 10)
	v.SetDefault("cols", 5)
	v.SetDefault("debounce", spreadsheet.DefaultDebounce)
	v.SetDefault("verbosity", 0)
	v.SetDefault("demo", false)

	v.SetConfigName(".livegrid") // .yaml is implicit
	v.SetEnvPrefix("LIVEGRID")
	v.AutomaticEnv()

	if override := os.Getenv("LIVEGRID_CONFIG_PATH"); override != "" {
		if expanded, err := homedir.Expand(override); err == nil {
			override = expanded
		}
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}
	return v
}

// Load reads the config file, if there is one, and returns the settings.
// A missing file is not an error.
func Load(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	s := Settings{
		Rows:      v.GetInt("rows"),
		Cols:      v.GetInt("cols"),
		Debounce:  v.GetDuration("debounce"),
		Verbosity: v.GetInt("verbosity"),
		Demo:      v.GetBool("demo"),
	}
	if s.Rows < 1 || s.Cols < 1 {
		return Settings{}, fmt.Errorf("grid size must be at least 1x1, got %dx%d", s.Cols, s.Rows)
	}
	if s.Debounce < 0 {
		return Settings{}, fmt.Errorf("debounce must not be negative, got %s", s.Debounce)
	}
	return s, nil
}

// ExpandPath resolves a leading ~ in path.
func ExpandPath(path string) (string, error) {
	return homedir.Expand(path)
}
