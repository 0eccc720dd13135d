package model

import "time"

// UserProfile holds the contact details of a signed-in user.
type UserProfile struct {
	ID          string
	Email       string
	DisplayName *string
	PhoneNumber *string
	CreatedAt   time.Time
}
