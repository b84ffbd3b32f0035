package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/colelawrence/spreadsheet/packages/spreadsheet"
)

var scriptLog = commonlog.GetLogger("livegrid.script")

// Script is a TOML file describing a grid and the edits to apply to it.
//
//	rows = 3
//	cols = 4
//
//	[[step]]
//	op = "set"
//	cell = "C1"
//	text = "=B1"
//
//	[[step]]
//	op = "move-column-after"
//	target = "B"
//	anchor = "D"
type Script struct {
	Rows  int    `toml:"rows"`
	Cols  int    `toml:"cols"`
	Demo  bool   `toml:"demo"`
	Steps []Step `toml:"step"`

	// Path is the file the script was loaded from (set at load time).
	Path string `toml:"-"`
}

// Step is one grid operation. Cells are display addresses ("B3"); targets
// and anchors are column letters or row numbers depending on the op.
type Step struct {
	Op     string `toml:"op"`
	Cell   string `toml:"cell"`
	Text   string `toml:"text"`
	Target string `toml:"target"`
	Anchor string `toml:"anchor"`
}

type stepFunc func(r *spreadsheet.RunnableGrid, s Step) *spreadsheet.RunnableGrid

var steps = map[string]stepFunc{
	"set":  func(r *spreadsheet.RunnableGrid, s Step) *spreadsheet.RunnableGrid { return r.Set(s.Cell, s.Text) },
	"edit": func(r *spreadsheet.RunnableGrid, s Step) *spreadsheet.RunnableGrid { return r.Edit(s.Cell, s.Text) },
	"log":  func(r *spreadsheet.RunnableGrid, s Step) *spreadsheet.RunnableGrid { return r.Log(s.Cell) },

	"move-column-before": pair((*spreadsheet.RunnableGrid).MoveColumnBefore),
	"move-column-after":  pair((*spreadsheet.RunnableGrid).MoveColumnAfter),
	"move-row-before":    pair((*spreadsheet.RunnableGrid).MoveRowBefore),
	"move-row-after":     pair((*spreadsheet.RunnableGrid).MoveRowAfter),
	"copy-column-before": pair((*spreadsheet.RunnableGrid).CopyColumnToBefore),
	"copy-column-after":  pair((*spreadsheet.RunnableGrid).CopyColumnToAfter),
	"copy-row-before":    pair((*spreadsheet.RunnableGrid).CopyRowToBefore),
	"copy-row-after":     pair((*spreadsheet.RunnableGrid).CopyRowToAfter),

	"insert-column-before": single((*spreadsheet.RunnableGrid).InsertColumnBefore),
	"insert-column-after":  single((*spreadsheet.RunnableGrid).InsertColumnAfter),
	"insert-row-before":    single((*spreadsheet.RunnableGrid).InsertRowBefore),
	"insert-row-after":     single((*spreadsheet.RunnableGrid).InsertRowAfter),
	"remove-column":        single((*spreadsheet.RunnableGrid).RemoveColumn),
	"remove-row":           single((*spreadsheet.RunnableGrid).RemoveRow),
}

func pair(fn func(*spreadsheet.RunnableGrid, string, string) *spreadsheet.RunnableGrid) stepFunc {
	return func(r *spreadsheet.RunnableGrid, s Step) *spreadsheet.RunnableGrid {
		return fn(r, s.Target, s.Anchor)
	}
}

func single(fn func(*spreadsheet.RunnableGrid, string) *spreadsheet.RunnableGrid) stepFunc {
	return func(r *spreadsheet.RunnableGrid, s Step) *spreadsheet.RunnableGrid {
		return fn(r, s.Target)
	}
}

// LoadScript parses the TOML script at path.
func LoadScript(path string) (*Script, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("cannot expand %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", expanded, err)
	}
	s, err := ParseScript(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", expanded, err)
	}
	s.Path = expanded
	return s, nil
}

// ParseScript decodes and validates a script.
func ParseScript(data string) (*Script, error) {
	var s Script
	if _, err := toml.Decode(data, &s); err != nil {
		return nil, err
	}
	for i, step := range s.Steps {
		if _, ok := steps[step.Op]; !ok {
			return nil, fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
		}
	}
	return &s, nil
}

// Size is the grid size of the script, falling back to settings for
// dimensions the script leaves out.
func (s *Script) Size(settings Settings) spreadsheet.Size {
	size := settings.Size()
	if s.Rows > 0 {
		size.Rows = s.Rows
	}
	if s.Cols > 0 {
		size.Cols = s.Cols
	}
	return size
}

// Run creates a grid and applies every step in order, stopping at the first
// failure. printLn receives the output of "log" steps.
func (s *Script) Run(settings Settings, printLn func(string)) (*spreadsheet.Grid, error) {
	opts := append(settings.Options(), spreadsheet.WithLogger(scriptLog))
	if s.Demo && !settings.Demo {
		opts = append(opts, spreadsheet.WithSeed(spreadsheet.DemoSeed()))
	}

	r := spreadsheet.NewRunnableGrid(s.Size(settings), printLn, opts...)
	if err := r.Error(); err != nil {
		return nil, err
	}
	for i, step := range s.Steps {
		scriptLog.Debugf("step %d: %s", i+1, step.Op)
		if err := steps[step.Op](r, step).Error(); err != nil {
			return r.Grid(), fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return r.Run()
}
