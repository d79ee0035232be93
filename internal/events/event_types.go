package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/study-share/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventQuestionCreated EventType = "question_created"
	EventQuestionDeleted EventType = "question_deleted"
	EventReportFiled     EventType = "report_filed"
	EventReportResolved  EventType = "report_resolved"
	EventRoleChanged     EventType = "role_changed"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ActorFrom converts a request identity.
func ActorFrom(identity domain.Identity) Actor {
	return Actor{UserID: identity.UserID, Role: identity.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// QuestionCreatedPayload payload.
type QuestionCreatedPayload struct {
	QuestionID string `json:"question_id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
}

// QuestionDeletedPayload payload.
type QuestionDeletedPayload struct {
	QuestionID     string `json:"question_id"`
	ReportsRemoved int    `json:"reports_removed"`
}

// ReportFiledPayload payload.
type ReportFiledPayload struct {
	ReportID   string `json:"report_id"`
	QuestionID string `json:"question_id"`
	Reason     string `json:"reason"`
}

// ReportResolvedPayload payload.
type ReportResolvedPayload struct {
	ReportID        string              `json:"report_id"`
	QuestionID      string              `json:"question_id"`
	Outcome         domain.ReportStatus `json:"outcome"`
	QuestionDeleted bool                `json:"question_deleted"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	UserID  string      `json:"user_id"`
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}
