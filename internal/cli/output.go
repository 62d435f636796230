package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"gopkg.in/yaml.v3"
)

// Printer renders a value as a table, JSON or YAML.
type Printer struct {
	Out    io.Writer
	Format string
}

// Print writes v in the configured format. table builds the table form.
func (p *Printer) Print(v any, table func(tbl *uitable.Table)) error {
	switch p.Format {
	case "json":
		enc := json.NewEncoder(p.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.Out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(toYAMLValue(v))
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	if table != nil {
		table(tbl)
	}
	_, err := fmt.Fprintln(p.Out, tbl)
	return err
}

// Message prints a line in table mode only.
func (p *Printer) Message(format string, args ...any) {
	if p.Format != "table" {
		return
	}
	_, _ = fmt.Fprintf(p.Out, format+"\n", args...)
}

// Warn prints a highlighted line in table mode only.
func (p *Printer) Warn(format string, args ...any) {
	if p.Format != "table" {
		return
	}
	_, _ = color.New(color.FgYellow, color.Bold).Fprintf(p.Out, format+"\n", args...)
}

func header(cols ...any) []any {
	bold := color.New(color.Bold)
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = bold.Sprint(c)
	}
	return out
}

// toYAMLValue routes v through its JSON form so YAML keys follow the json tags.
func toYAMLValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func label(s string) string {
	return color.New(color.Bold).Sprint(s)
}
