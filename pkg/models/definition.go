package models

import "time"

// Step is one required sign-off in a definition's chain.
type Step struct {
	Role Role `json:"role" validate:"required"`
}

// Definition is an administrator-managed approval workflow rule: which entity
// type it governs, the condition that triggers it, and the ordered roles that
// must sign off.
//
// Definitions are not versioned and editing one does not retroactively update
// instances already spawned from it. Deleting a definition leaves in-flight
// instances in place as permanent audit records.
type Definition struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"        validate:"required,min=3"`
	EntityType EntityType `json:"entity_type" validate:"required"`
	Condition  Condition  `json:"condition"`
	Steps      []Step     `json:"steps"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
