package mq

const (
	RoutingKeyFamilyCreated = "family.created"
	QueueFamilyCreated      = "family.created.q"
)

// FamilyCreatedPayload is emitted by the account service when a household signs up.
type FamilyCreatedPayload struct {
	FamilyID     string `json:"family_id"`
	Name         string `json:"name"`
	CreatedBy    string `json:"created_by"`
	SeedDefaults bool   `json:"seed_defaults"`
	TraceID      string `json:"trace_id,omitempty"`
}
