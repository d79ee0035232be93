package domain

import "time"

// Question is authored content owned by exactly one user.
type Question struct {
	ID        string
	AuthorID  string
	Title     string
	Body      string
	Slug      string
	ReportIDs []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EditableBy reports whether the identity may mutate or delete the question.
func (q *Question) EditableBy(id Identity) bool {
	return id.Role.Privileged() || (id.UserID != "" && id.UserID == q.AuthorID)
}
