package main

import (
	"fmt"
	"io"
	"strings"

	"familytasks/internal/model"
	"familytasks/internal/service"
	"familytasks/pkg/outbox"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(out io.Writer, header ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = false

	row := make(table.Row, 0, len(header))
	for _, h := range header {
		row = append(row, text.FgGreen.Sprintf("%v", h))
	}
	t.AppendHeader(row)
	return t
}

func renderSummary(out io.Writer, s *service.Summary) {
	t := newTable(out, "Date", "Families", "Processed", "Tasks Created", "Errors")
	errCount := fmt.Sprintf("%d", len(s.Errors))
	if len(s.Errors) > 0 {
		errCount = text.FgHiRed.Sprintf("%d", len(s.Errors))
	}
	t.AppendRow(table.Row{s.Date, s.TotalFamilies, s.ProcessedFamilies, s.TotalTasksCreated, errCount})
	t.Render()

	for _, e := range s.Errors {
		fmt.Fprintln(out, text.FgHiRed.Sprint("✗ "+e))
	}
}

func renderResult(out io.Writer, familyID string, r service.Result) {
	t := newTable(out, "Family", "Date", "Tasks Created", "Templates Checked")
	t.AppendRow(table.Row{familyID, r.Date, r.Created, len(r.TemplatesChecked)})
	t.Render()
}

func renderFamilies(out io.Writer, families []model.Family) {
	t := newTable(out, "ID", "Name", "Created")
	for _, f := range families {
		t.AppendRow(table.Row{f.ID, f.Name, f.CreatedAt.Format("2006-01-02 15:04")})
	}
	t.AppendFooter(table.Row{"", "Total", len(families)})
	t.Render()
}

func renderTemplates(out io.Writer, templates []model.TaskTemplate) {
	t := newTable(out, "ID", "Name", "Points", "Recurrence", "Active")
	for _, tpl := range templates {
		active := text.FgHiGreen.Sprint("yes")
		if !tpl.IsActive {
			active = text.FgHiBlack.Sprint("no")
		}
		recurrence := string(tpl.Recurrence)
		if tpl.IsMaterialized() {
			recurrence = text.Bold.Sprint(recurrence)
		}
		t.AppendRow(table.Row{tpl.ID, strings.TrimSpace(tpl.Icon + " " + tpl.Name), tpl.Points, recurrence, active})
	}
	t.Render()
}

func renderInspection(out io.Writer, in *service.Inspection) {
	t := newTable(out, "Family", "Active Templates", "Daily Templates", "Needs Processing")
	t.AppendRow(table.Row{in.FamilyID, in.ActiveTemplates, in.DailyTemplates, in.NeedsProcessing})
	t.Render()
}

func renderEvents(out io.Writer, events []*outbox.Event) {
	t := newTable(out, "ID", "Routing Key", "Aggregate", "Status", "Retries", "Updated")
	for _, e := range events {
		t.AppendRow(table.Row{
			e.ID,
			e.RoutingKey,
			e.AggregateType + ":" + e.AggregateID,
			text.FgHiRed.Sprint(e.Status),
			e.RetryCount,
			e.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}
