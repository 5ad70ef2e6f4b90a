package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// column renders one table column of T.
type column[T any] struct {
	header string
	value  func(T) string
}

func col[T any](header string, value func(T) string) column[T] {
	return column[T]{header: header, value: value}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func validOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// render writes v as JSON or YAML, or as a table of rows when format is table.
func render[T any](w io.Writer, format string, rows []T, columns []column[T]) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []T{}
		}
		return enc.Encode(rows)

	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, c := range columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c.header)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, c := range columns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c.value(row))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// renderOne writes a single value.
func renderOne[T any](w io.Writer, format string, v T, columns []column[T]) error {
	if format == outputTable {
		return render(w, format, []T{v}, columns)
	}
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
