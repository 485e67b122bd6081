package domain

import "github.com/google/uuid"

// Recipient is the contact data needed to address an owner.
type Recipient struct {
	OwnerID  uuid.UUID
	Email    string
	Language string
}
