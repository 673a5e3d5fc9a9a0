package schema

import "time"

// ActivityCategory groups audit entries by the area of the console they touch.
type ActivityCategory string

const (
	// CategoryOrders covers order lifecycle mutations.
	CategoryOrders ActivityCategory = "orders"
	// CategoryProducts covers catalog mutations.
	CategoryProducts ActivityCategory = "products"
	// CategoryProjects covers build-project mutations.
	CategoryProjects ActivityCategory = "projects"
	// CategoryContracts covers contract mutations.
	CategoryContracts ActivityCategory = "contracts"
	// CategoryUsers covers personnel mutations.
	CategoryUsers ActivityCategory = "users"
	// CategorySystem covers system-originated events.
	CategorySystem ActivityCategory = "system"
)

// Validate rejects categories outside the closed variant set.
func (c ActivityCategory) Validate() bool {
	switch c {
	case CategoryOrders, CategoryProducts, CategoryProjects,
		CategoryContracts, CategoryUsers, CategorySystem:
		return true
	}
	return false
}

// ActivityLogEntry records a single privileged mutation performed in the console.
type ActivityLogEntry struct {
	ID        string           `json:"id"`
	ActorID   string           `json:"actorId"`
	ActorName string           `json:"actorName"`
	Action    string           `json:"action"`
	Detail    string           `json:"detail"`
	Category  ActivityCategory `json:"category"`
	Timestamp time.Time        `json:"timestamp"`
}
