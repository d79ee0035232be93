package domain

import "time"

// ReportStatus tracks moderation of a report.
type ReportStatus string

const (
	ReportStatusUnresolved ReportStatus = "unresolved"
	ReportStatusActioned   ReportStatus = "actioned"
	ReportStatusDismissed  ReportStatus = "dismissed"
)

// Resolution reports whether s is a terminal outcome a moderator may choose.
func (s ReportStatus) Resolution() bool {
	return s == ReportStatusActioned || s == ReportStatusDismissed
}

// Report flags a question. Only Status and the resolution fields ever change.
type Report struct {
	ID         string
	QuestionID string
	ReporterID *string
	Reason     string
	Status     ReportStatus
	ResolvedBy *string
	ResolvedAt *time.Time
	CreatedAt  time.Time
}
