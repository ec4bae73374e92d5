package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// printer writes either aligned text or JSON.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(format string, w io.Writer) *printer {
	return &printer{format: format, w: w}
}

func (p *printer) isJSON() bool { return p.format == "json" }

func (p *printer) json(v interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// result prints data as JSON, or msg as text.
func (p *printer) result(data interface{}, msg string, args ...interface{}) error {
	if p.isJSON() {
		return p.json(data)
	}
	_, err := fmt.Fprintf(p.w, msg+"\n", args...)
	return err
}

// table prints rows under headers as text, or data as JSON.
func (p *printer) table(data interface{}, headers []string, rows [][]string) error {
	if p.isJSON() {
		return p.json(data)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(p.w, "Nothing found.")
		return err
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
