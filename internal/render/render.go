// Package render prints grid snapshots for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/colelawrence/spreadsheet/packages/spreadsheet"
)

// Mode selects what each cell of a printed grid shows.
type Mode string

const (
	// Values prints each cell's display text, or its short error.
	Values Mode = "values"
	// Inputs prints the text a user would edit.
	Inputs Mode = "inputs"
	// JSON prints the whole snapshot as JSON.
	JSON Mode = "json"
)

// Printer writes snapshots to Out.
type Printer struct {
	Out      io.Writer
	Mode     Mode
	MaxWidth uint
}

// NewPrinter returns a printer writing to color.Output, which handles
// colors on every platform.
func NewPrinter(mode Mode) *Printer {
	return &Printer{Out: color.Output, Mode: mode, MaxWidth: 24}
}

var (
	header  = color.New(color.Bold, color.Underline)
	faint   = color.New(color.Faint)
	failure = color.New(color.FgRed)
	formula = color.New(color.FgCyan)
)

// Print writes snap in the printer's mode.
func (p *Printer) Print(snap spreadsheet.Snapshot) error {
	if p.Mode == JSON {
		return p.printJSON(snap)
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = p.MaxWidth

	row := []interface{}{""}
	for ci := range snap.Columns {
		row = append(row, header.Sprint(spreadsheet.ColumnName(ci)))
	}
	tbl.AddRow(row...)

	for ri, line := range snap.Cells {
		row := []interface{}{faint.Sprint(spreadsheet.RowName(ri))}
		for _, cell := range line {
			row = append(row, p.cell(cell))
		}
		tbl.AddRow(row...)
	}

	_, err := fmt.Fprintln(p.Out, tbl)
	return err
}

func (p *Printer) cell(cell spreadsheet.CellSnapshot) string {
	if p.Mode == Inputs {
		if strings.HasPrefix(cell.Input, "=") {
			return formula.Sprint(cell.Input)
		}
		return cell.Input
	}

	view := cell.View
	switch {
	case !view.OK:
		return failure.Sprint(strings.ReplaceAll(view.Short(), "\n", " "))
	case view.Formula:
		return formula.Sprint(view.Display)
	default:
		return view.Display
	}
}

type jsonCell struct {
	Address string                `json:"address"`
	Input   string                `json:"input,omitempty"`
	Formula bool                  `json:"formula,omitempty"`
	OK      bool                  `json:"ok"`
	Value   spreadsheet.Primitive `json:"value,omitempty"`
	Display string                `json:"display,omitempty"`
	Error   string                `json:"error,omitempty"`
	Code    string                `json:"code,omitempty"`
}

func (p *Printer) printJSON(snap spreadsheet.Snapshot) error {
	var cells []jsonCell
	for _, line := range snap.Cells {
		for _, cell := range line {
			if cell.Input == "" {
				continue
			}
			cells = append(cells, jsonCell{
				Address: cell.Address,
				Input:   cell.Input,
				Formula: cell.View.Formula,
				OK:      cell.View.OK,
				Value:   jsonValue(cell.View),
				Display: cell.View.Display,
				Error:   cell.View.Error,
				Code:    cell.View.Code.String(),
			})
		}
	}

	out := map[string]any{
		"columns": len(snap.Columns),
		"rows":    len(snap.Rows),
		"cells":   cells,
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.Out, string(b))
	return err
}

// jsonValue replaces numbers JSON can not encode (NaN, Infinity) with
// their display text.
func jsonValue(view spreadsheet.CellView) spreadsheet.Primitive {
	if f, ok := view.Value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return view.Display
	}
	return view.Value
}
