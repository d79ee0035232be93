package dto

import (
	"time"

	"github.com/spec-kit/study-share/internal/domain"
)

// CreateQuestionRequest payload.
type CreateQuestionRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// UpdateQuestionRequest payload; omitted fields stay unchanged.
type UpdateQuestionRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// QuestionResponse response.
type QuestionResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Slug      string    `json:"slug"`
	Reports   []string  `json:"reports"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewQuestionResponse maps a domain question.
func NewQuestionResponse(q *domain.Question) QuestionResponse {
	reports := q.ReportIDs
	if reports == nil {
		reports = []string{}
	}
	return QuestionResponse{
		ID:        q.ID,
		AuthorID:  q.AuthorID,
		Title:     q.Title,
		Body:      q.Body,
		Slug:      q.Slug,
		Reports:   reports,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}
