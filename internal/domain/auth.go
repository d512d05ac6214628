package domain

import "time"

// Identity is the subject asserted by an upstream identity provider.
type Identity struct {
	SubjectID   string
	DisplayName string
}

// Session is a signed, self-contained dashboard session.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}
