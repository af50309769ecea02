package model

import "time"

// DailyCheck records one successful materialization. It is audit data only.
type DailyCheck struct {
	ID               string    `json:"id"`
	FamilyID         string    `json:"family_id"`
	Date             string    `json:"date"`
	TemplatesChecked []string  `json:"templates_checked"`
	InstancesCreated int       `json:"instances_created"`
	CheckedAt        time.Time `json:"checked_at"`
}
