package mq

const RoutingKeyDailyTasksGenerated = "daily_tasks.generated"

// DailyTasksGeneratedPayload is published once per committed materialization.
type DailyTasksGeneratedPayload struct {
	FamilyID    string   `json:"family_id"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Created     int      `json:"created"`
	InstanceIDs []string `json:"instance_ids"`
	TraceID     string   `json:"trace_id,omitempty"`
}
