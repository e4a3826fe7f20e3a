package ui

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// Table collects the rows of a boxed pterm table.
type Table struct {
	data [][]string
}

func NewTable(header ...string) *Table {
	return &Table{data: [][]string{header}}
}

func (t *Table) Row(cells ...string) *Table {
	t.data = append(t.data, cells)
	return t
}

// Print renders the table to w. Rendering errors are reported on the
// console instead of aborting the command.
func (t *Table) Print(w io.Writer) {
	table := pterm.DefaultTable
	table.Boxed = true

	str, err := table.WithHasHeader().WithData(t.data).Srender()
	if err != nil {
		pterm.Error.Printfln("Failed to output table: %s", err.Error())
		return
	}

	fmt.Fprintln(w, str)
}
