package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

// renderer writes one result in the selected format. Table and CSV output
// use the given rows; JSON output encodes the structured value instead.
type renderer struct {
	w      io.Writer
	format string
	warn   *color.Color
}

func newRenderer(w io.Writer, format string, colored bool) renderer {
	warn := color.New(color.FgYellow)
	if !colored || !isTerminal(w) {
		warn.DisableColor()
	}
	return renderer{w: w, format: format, warn: warn}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r renderer) render(headers []string, rows [][]string, v any) error {
	switch r.format {
	case OutputJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputCSV:
		cw := csv.NewWriter(r.w)
		if err := cw.Write(headers); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	default:
		return r.table(headers, rows)
	}
}

func (r renderer) table(headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(r.w)
	defer func() { _ = table.Close() }()

	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// note prints an advisory line. JSON and CSV output stay machine readable,
// so notes are dropped there.
func (r renderer) note(msg string) {
	if r.format != OutputTable {
		return
	}
	_, _ = r.warn.Fprintln(r.w, msg)
}
