package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// formatter writes either indented JSON or an aligned table.
type formatter struct {
	format string
	w      io.Writer
}

// emit prints data as JSON, or calls table to render the text form.
func (f *formatter) emit(data any, header []string, rows [][]string) error {
	if f.format == "json" {
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	tw := tabwriter.NewWriter(f.w, 0, 4, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// message prints a single line in text mode, or data as JSON.
func (f *formatter) message(data any, format string, args ...any) error {
	if f.format == "json" {
		return f.emit(data, nil, nil)
	}
	_, err := fmt.Fprintf(f.w, format+"\n", args...)
	return err
}
