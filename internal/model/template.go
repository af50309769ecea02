package model

import (
	"strings"
	"time"
)

type Recurrence string

const (
	RecurrenceOnce    Recurrence = "once"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceCustom  Recurrence = "custom"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceOnce, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TaskTemplate is a recurring chore definition owned by one family. Templates are never
// hard-deleted; IsActive=false hides them from materialization.
type TaskTemplate struct {
	ID            string      `json:"id"`
	FamilyID      string      `json:"family_id"`
	Name          string      `json:"name"`
	Icon          string      `json:"icon"`
	Points        int         `json:"points"`
	Category      *string     `json:"category,omitempty"`
	Difficulty    *Difficulty `json:"difficulty,omitempty"`
	EstimatedTime *int        `json:"estimated_time,omitempty"` // minutes
	Recurrence    Recurrence  `json:"recurrence"`
	IsActive      bool        `json:"is_active"`
	CreatedBy     string      `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsMaterialized reports whether the daily engine creates instances for t.
func (t *TaskTemplate) IsMaterialized() bool {
	return t.IsActive && t.Recurrence == RecurrenceDaily
}

func (t *TaskTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if t.Points < 0 {
		return &ValidationError{Field: "points", Message: "must not be negative"}
	}
	if !t.Recurrence.Valid() {
		return &ValidationError{Field: "recurrence", Message: "unknown value " + string(t.Recurrence)}
	}
	if t.Difficulty != nil && !t.Difficulty.Valid() {
		return &ValidationError{Field: "difficulty", Message: "unknown value " + string(*t.Difficulty)}
	}
	if t.EstimatedTime != nil && *t.EstimatedTime < 0 {
		return &ValidationError{Field: "estimated_time", Message: "must not be negative"}
	}
	return nil
}

// TemplateUpdate is a partial update; nil fields are left unchanged.
type TemplateUpdate struct {
	Name          *string     `json:"name,omitempty"`
	Icon          *string     `json:"icon,omitempty"`
	Points        *int        `json:"points,omitempty"`
	Category      *string     `json:"category,omitempty"`
	Difficulty    *Difficulty `json:"difficulty,omitempty"`
	EstimatedTime *int        `json:"estimated_time,omitempty"`
	Recurrence    *Recurrence `json:"recurrence,omitempty"`
	IsActive      *bool       `json:"is_active,omitempty"`
}

// Apply copies the set fields onto t and validates the result.
func (u TemplateUpdate) Apply(t *TaskTemplate) error {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Icon != nil {
		t.Icon = *u.Icon
	}
	if u.Points != nil {
		t.Points = *u.Points
	}
	if u.Category != nil {
		t.Category = u.Category
	}
	if u.Difficulty != nil {
		t.Difficulty = u.Difficulty
	}
	if u.EstimatedTime != nil {
		t.EstimatedTime = u.EstimatedTime
	}
	if u.Recurrence != nil {
		t.Recurrence = *u.Recurrence
	}
	if u.IsActive != nil {
		t.IsActive = *u.IsActive
	}
	return t.Validate()
}
