package models

import "time"

// UnknownIdentity is stored when the upstream token carries no email or phone claim.
const UnknownIdentity = "unknown"

// TeacherAccount is the identity and most recent schedule platform token captured for a teacher.
type TeacherAccount struct {
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	Token      string    `db:"token" json:"token,omitempty"`
	Month      int       `db:"month" json:"month"`
	Year       int       `db:"year" json:"year"`
	CapturedAt time.Time `db:"captured_at" json:"captured_at"`
}

// Redacted returns a copy without the captured token.
func (a TeacherAccount) Redacted() TeacherAccount {
	a.Token = ""
	return a
}

// AccountFilter narrows teacher account listings.
type AccountFilter struct {
	Search   string
	Page     int
	PageSize int
}

// VisitorCounter is the running total of dashboard sessions.
type VisitorCounter struct {
	Total     int64     `db:"total" json:"total"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
