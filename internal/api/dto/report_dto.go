package dto

import (
	"time"

	"github.com/spec-kit/study-share/internal/domain"
)

// FileReportRequest payload.
type FileReportRequest struct {
	Reason string `json:"reason"`
}

// ResolveReportRequest payload.
type ResolveReportRequest struct {
	Outcome domain.ReportStatus `json:"outcome"`
}

// ReportResponse response.
type ReportResponse struct {
	ID         string              `json:"id"`
	QuestionID string              `json:"question_id"`
	ReporterID *string             `json:"reporter_id"`
	Reason     string              `json:"reason"`
	Status     domain.ReportStatus `json:"status"`
	ResolvedBy *string             `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// ResolveReportResponse describes the effect of a resolution.
type ResolveReportResponse struct {
	Report          ReportResponse `json:"report"`
	QuestionDeleted bool           `json:"question_deleted"`
	ReportsRemoved  int            `json:"reports_removed"`
}

// NewReportResponse maps a domain report.
func NewReportResponse(r *domain.Report) ReportResponse {
	return ReportResponse{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		ReporterID: r.ReporterID,
		Reason:     r.Reason,
		Status:     r.Status,
		ResolvedBy: r.ResolvedBy,
		ResolvedAt: r.ResolvedAt,
		CreatedAt:  r.CreatedAt,
	}
}
