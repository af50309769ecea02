package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// DateLayout is the YYYY-MM-DD layout of AssignedDate.
const DateLayout = "2006-01-02"

// TaskInstance is one template materialized for one calendar day. The completion fields
// are either all set (completed) or all nil (pending).
type TaskInstance struct {
	ID              string     `json:"id"`
	FamilyID        string     `json:"family_id"`
	TemplateID      string     `json:"template_id"`
	AssignedDate    string     `json:"assigned_date"`
	Status          Status     `json:"status"`
	CompletedBy     *string    `json:"completed_by,omitempty"`
	CompletedByName *string    `json:"completed_by_name,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	PointsEarned    *int       `json:"points_earned,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewPendingInstance builds the instance the engine would create for tpl on date.
func NewPendingInstance(tpl *TaskTemplate, date string) *TaskInstance {
	return &TaskInstance{
		FamilyID:     tpl.FamilyID,
		TemplateID:   tpl.ID,
		AssignedDate: date,
		Status:       StatusPending,
	}
}

func (i *TaskInstance) IsCompleted() bool {
	return i.Status == StatusCompleted
}

// CompleteRequest marks an instance done. PointsEarned defaults to the template's
// points when nil.
type CompleteRequest struct {
	CompletedBy     string `json:"completed_by"`
	CompletedByName string `json:"completed_by_name"`
	PointsEarned    *int   `json:"points_earned,omitempty"`
}

func (r CompleteRequest) Validate() error {
	if strings.TrimSpace(r.CompletedBy) == "" {
		return &ValidationError{Field: "completed_by", Message: "is required"}
	}
	if r.PointsEarned != nil && *r.PointsEarned < 0 {
		return &ValidationError{Field: "points_earned", Message: "must not be negative"}
	}
	return nil
}

// ValidateDate checks the YYYY-MM-DD form and that it names a real day.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return &ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return nil
}

// DateIn formats t as the calendar day in loc.
func DateIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
