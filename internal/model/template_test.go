package model

import (
	"errors"
	"testing"
	"time"
)

func TestTaskTemplateValidate(t *testing.T) {
	hard := Difficulty("brutal")
	neg := -1
	cases := []struct {
		name  string
		tpl   TaskTemplate
		field string
	}{
		{"ok", TaskTemplate{Name: "Dishes", Recurrence: RecurrenceDaily}, ""},
		{"empty name", TaskTemplate{Name: " ", Recurrence: RecurrenceDaily}, "name"},
		{"negative points", TaskTemplate{Name: "x", Points: -5, Recurrence: RecurrenceDaily}, "points"},
		{"bad recurrence", TaskTemplate{Name: "x", Recurrence: "hourly"}, "recurrence"},
		{"bad difficulty", TaskTemplate{Name: "x", Recurrence: RecurrenceWeekly, Difficulty: &hard}, "difficulty"},
		{"negative estimate", TaskTemplate{Name: "x", Recurrence: RecurrenceOnce, EstimatedTime: &neg}, "estimated_time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tpl.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("err = %v, want validation error on %s", err, tc.field)
			}
		})
	}
}

func TestIsMaterialized(t *testing.T) {
	cases := []struct {
		active bool
		rec    Recurrence
		want   bool
	}{
		{true, RecurrenceDaily, true},
		{false, RecurrenceDaily, false},
		{true, RecurrenceWeekly, false},
	}
	for _, tc := range cases {
		tpl := TaskTemplate{IsActive: tc.active, Recurrence: tc.rec}
		if got := tpl.IsMaterialized(); got != tc.want {
			t.Fatalf("active=%v recurrence=%s: got %v", tc.active, tc.rec, got)
		}
	}
}

func TestTemplateUpdateApply(t *testing.T) {
	tpl := TaskTemplate{Name: "Old", Points: 5, Recurrence: RecurrenceDaily, IsActive: true}
	name := "New"
	inactive := false
	if err := (TemplateUpdate{Name: &name, IsActive: &inactive}).Apply(&tpl); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if tpl.Name != "New" || tpl.IsActive || tpl.Points != 5 {
		t.Fatalf("unexpected template after update: %+v", tpl)
	}

	neg := -3
	if err := (TemplateUpdate{Points: &neg}).Apply(&tpl); err == nil {
		t.Fatalf("expected validation error for negative points")
	}
}

func TestValidateDate(t *testing.T) {
	for _, ok := range []string{"2024-01-15", "2024-02-29"} {
		if err := ValidateDate(ok); err != nil {
			t.Fatalf("%s: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "2024-1-15", "2023-02-29", "15/01/2024"} {
		if err := ValidateDate(bad); err == nil {
			t.Fatalf("%q should be rejected", bad)
		}
	}
}

func TestDateInUsesLocation(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	instant := time.Date(2024, 1, 16, 1, 30, 0, 0, time.UTC)
	if got := DateIn(instant, sp); got != "2024-01-15" {
		t.Fatalf("DateIn = %s, want 2024-01-15", got)
	}
	if got := DateIn(instant, time.UTC); got != "2024-01-16" {
		t.Fatalf("DateIn UTC = %s", got)
	}
}

func TestDefaultTemplates(t *testing.T) {
	if len(DefaultTemplates) != 15 {
		t.Fatalf("got %d defaults, want 15", len(DefaultTemplates))
	}
	daily := 0
	for _, d := range DefaultTemplates {
		tpl := d.Template("f1", "u1")
		if err := tpl.Validate(); err != nil {
			t.Fatalf("%s: %v", d.Name, err)
		}
		if tpl.IsMaterialized() {
			daily++
		}
	}
	if daily != 11 {
		t.Fatalf("daily defaults = %d, want 11", daily)
	}
}
