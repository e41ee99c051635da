package domain

import "time"

// Entity is a tenant or department owning tickets. Hierarchy is one level:
// an entity may reference a parent whose SLA rules apply as a fallback.
type Entity struct {
	ID        string
	Name      string
	ParentID  *string
	IsActive  bool
	CreatedAt time.Time
}
