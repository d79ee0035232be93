package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/study-share/internal/domain"
	"github.com/spec-kit/study-share/internal/events"
	"github.com/spec-kit/study-share/internal/repository"
	apperrors "github.com/spec-kit/study-share/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ModerationMetrics counts moderation operations.
type ModerationMetrics interface {
	RecordModeration(action string)
}

// ModerationService owns questions and the reports filed against them.
type ModerationService struct {
	questions  repository.QuestionRepository
	reports    repository.ReportRepository
	dispatcher events.Dispatcher
	metrics    ModerationMetrics
	logger     *zap.Logger
}

// ModerationDependencies bundles collaborators for the moderation service.
type ModerationDependencies struct {
	QuestionRepo repository.QuestionRepository
	ReportRepo   repository.ReportRepository
	Dispatcher   events.Dispatcher
	Metrics      ModerationMetrics
	Logger       *zap.Logger
}

// QuestionUpdateInput carries the fields a PATCH may change. Nil means unchanged.
type QuestionUpdateInput struct {
	Title *string
	Body  *string
}

// ReportListFilter describes moderator listing filters.
type ReportListFilter struct {
	QuestionID *string
	Status     *domain.ReportStatus
	Limit      int
	Offset     int
}

// NewModerationService constructs the service.
func NewModerationService(deps ModerationDependencies) *ModerationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{
		questions:  deps.QuestionRepo,
		reports:    deps.ReportRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger.Named("moderation"),
	}
}

// CreateQuestion publishes a question under a slug derived from its title.
// Two titles folding to the same slug conflict; the store decides the winner.
func (s *ModerationService) CreateQuestion(ctx context.Context, authorID, title, body string) (*domain.Question, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, apperrors.NewValidationError("title and body are required", nil)
	}
	slug := domain.Slugify(title)
	if slug == "" {
		return nil, apperrors.NewValidationError("title must contain letters or digits", map[string]any{"title": title})
	}

	question := &domain.Question{
		AuthorID: authorID,
		Title:    title,
		Body:     body,
		Slug:     slug,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		switch {
		case isDuplicate(err):
			return nil, apperrors.NewConflict("a question with this title already exists", map[string]any{"slug": slug})
		case errors.Is(err, repository.ErrReferenceMissing):
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.record("question_created")
	s.publishEvent(ctx, events.New(events.EventQuestionCreated, events.Actor{UserID: authorID}, events.QuestionCreatedPayload{
		QuestionID: question.ID,
		Slug:       question.Slug,
		Title:      question.Title,
	}))
	return question, nil
}

// UpdateQuestion edits title or body. The slug stays what it was at creation.
func (s *ModerationService) UpdateQuestion(ctx context.Context, questionID string, actor domain.Identity, input QuestionUpdateInput) (*domain.Question, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, notFoundOr(err, "question")
	}
	if !question.EditableBy(actor) {
		return nil, forbidden()
	}
	if input.Title == nil && input.Body == nil {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if input.Title != nil {
		question.Title = strings.TrimSpace(*input.Title)
	}
	if input.Body != nil {
		question.Body = strings.TrimSpace(*input.Body)
	}
	if question.Title == "" || question.Body == "" {
		return nil, apperrors.NewValidationError("title and body are required", nil)
	}

	if err := s.questions.Update(ctx, question); err != nil {
		return nil, notFoundOr(err, "question")
	}
	s.record("question_updated")
	return question, nil
}

// GetQuestionBySlug loads a question with its report references.
func (s *ModerationService) GetQuestionBySlug(ctx context.Context, slug string) (*domain.Question, error) {
	question, err := s.questions.GetBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOr(err, "question")
	}
	return question, nil
}

// ListQuestions returns questions newest first.
func (s *ModerationService) ListQuestions(ctx context.Context, limit, offset int) ([]domain.Question, error) {
	limit, offset = page(limit, offset)
	questions, err := s.questions.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return questions, nil
}

// FileReport appends a report to a question. Any authenticated caller may
// report, the author included, and repeated reports are kept.
func (s *ModerationService) FileReport(ctx context.Context, questionID, reporterID, reason string) (*domain.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason is required", nil)
	}

	report := &domain.Report{
		QuestionID: questionID,
		Reason:     reason,
		Status:     domain.ReportStatusUnresolved,
	}
	if reporterID != "" {
		report.ReporterID = &reporterID
	}
	if err := s.reports.Create(ctx, report); err != nil {
		// the question can vanish between the caller's lookup and this insert
		if errors.Is(err, repository.ErrReferenceMissing) {
			return nil, apperrors.NewNotFound("question", nil)
		}
		return nil, notFoundOr(err, "question")
	}

	s.record("report_filed")
	s.publishEvent(ctx, events.New(events.EventReportFiled, events.Actor{UserID: reporterID}, events.ReportFiledPayload{
		ReportID:   report.ID,
		QuestionID: questionID,
		Reason:     reason,
	}))
	return report, nil
}

// ListReports lists reports in filing order for moderators.
func (s *ModerationService) ListReports(ctx context.Context, actor domain.Identity, filter ReportListFilter) ([]domain.Report, error) {
	if !actor.Role.Privileged() {
		return nil, forbidden()
	}
	if filter.Status != nil {
		switch *filter.Status {
		case domain.ReportStatusUnresolved, domain.ReportStatusActioned, domain.ReportStatusDismissed:
		default:
			return nil, apperrors.NewValidationError("unknown report status", map[string]any{"status": *filter.Status})
		}
	}
	limit, offset := page(filter.Limit, filter.Offset)
	reports, err := s.reports.List(ctx, repository.ReportFilter{
		QuestionID: filter.QuestionID,
		Status:     filter.Status,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reports, nil
}

// ResolveReport closes an unresolved report. Actioning it takes the question
// down with all of its reports; dismissing only records the outcome. A report
// is resolved at most once.
func (s *ModerationService) ResolveReport(ctx context.Context, reportID string, resolver domain.Identity, outcome domain.ReportStatus) (*repository.ResolveResult, error) {
	if !resolver.Role.Privileged() {
		return nil, forbidden()
	}
	if !outcome.Resolution() {
		return nil, apperrors.NewValidationError("outcome must be actioned or dismissed", map[string]any{"outcome": outcome})
	}

	result, err := s.reports.Resolve(ctx, reportID, outcome, resolver.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyResolved):
			return nil, apperrors.NewAlreadyResolved(map[string]any{"report_id": reportID})
		case errors.Is(err, repository.ErrReferenceMissing):
			return nil, apperrors.NewUnauthorized("resolver account not found")
		}
		return nil, notFoundOr(err, "report")
	}

	s.record("report_" + string(outcome))
	s.logger.Info("report resolved",
		zap.String("report_id", reportID),
		zap.String("outcome", string(outcome)),
		zap.String("resolver_id", resolver.UserID),
		zap.Bool("question_deleted", result.QuestionDeleted),
	)
	actor := events.ActorFrom(resolver)
	s.publishEvent(ctx, events.New(events.EventReportResolved, actor, events.ReportResolvedPayload{
		ReportID:        reportID,
		QuestionID:      result.Report.QuestionID,
		Outcome:         outcome,
		QuestionDeleted: result.QuestionDeleted,
	}))
	if result.QuestionDeleted {
		s.publishEvent(ctx, events.New(events.EventQuestionDeleted, actor, events.QuestionDeletedPayload{
			QuestionID:     result.Report.QuestionID,
			ReportsRemoved: result.ReportsRemoved,
		}))
	}
	return result, nil
}

// DeleteQuestion removes a question and every report filed against it. Only
// the author or a moderator may do so. It returns the number of reports removed.
func (s *ModerationService) DeleteQuestion(ctx context.Context, questionID string, actor domain.Identity) (int, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return 0, notFoundOr(err, "question")
	}
	if !question.EditableBy(actor) {
		return 0, forbidden()
	}

	removed, err := s.questions.Delete(ctx, questionID)
	if err != nil {
		return 0, notFoundOr(err, "question")
	}

	s.record("question_deleted")
	s.publishEvent(ctx, events.New(events.EventQuestionDeleted, events.ActorFrom(actor), events.QuestionDeletedPayload{
		QuestionID:     questionID,
		ReportsRemoved: removed,
	}))
	return removed, nil
}

func (s *ModerationService) record(action string) {
	if s.metrics != nil {
		s.metrics.RecordModeration(action)
	}
}

func (s *ModerationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
