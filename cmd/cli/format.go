package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/and161185/timekeeper/internal/convert"
	"github.com/and161185/timekeeper/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tsString(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func durString(e model.TimeEntry) string {
	d, ok := e.Duration()
	if !ok {
		return "running"
	}
	return (time.Duration(d) * time.Second).String()
}

func printEntry(w io.Writer, asJSON bool, e model.TimeEntry) error {
	if asJSON {
		return printJSON(w, convert.ToResponse(e))
	}
	return printTable(w, []model.TimeEntry{e})
}

func printList(w io.Writer, asJSON bool, entries []model.TimeEntry) error {
	if asJSON {
		return printJSON(w, convert.ToResponses(entries))
	}
	return printTable(w, entries)
}

func printTable(w io.Writer, entries []model.TimeEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTASK\tSTART\tEND\tDURATION\tDESCRIPTION")
	for _, e := range entries {
		desc := ""
		if e.Description != nil {
			desc = *e.Description
		}
		start := e.StartTime
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.TaskID, tsString(&start), tsString(e.EndTime), durString(e), desc)
	}
	return tw.Flush()
}
