// Package memory provides repository implementations held in process memory.
// Every write happens under one lock, which gives the same guarantees the
// Postgres schema gives: unique email and slug, foreign keys, ordered report
// append and cascading question delete.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/study-share/internal/domain"
	"github.com/spec-kit/study-share/internal/repository"
)

// Store holds users, questions and reports.
type Store struct {
	mu sync.Mutex

	users        map[string]*domain.User
	usersByEmail map[string]string

	questions       map[string]*domain.Question
	questionsBySlug map[string]string
	questionSeq     map[string]int64

	reports   map[string]*domain.Report
	reportSeq map[string]int64

	seq int64
	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:           make(map[string]*domain.User),
		usersByEmail:    make(map[string]string),
		questions:       make(map[string]*domain.Question),
		questionsBySlug: make(map[string]string),
		questionSeq:     make(map[string]int64),
		reports:         make(map[string]*domain.Report),
		reportSeq:       make(map[string]int64),
		now:             time.Now,
	}
}

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Questions exposes the store as a QuestionRepository.
func (s *Store) Questions() repository.QuestionRepository { return questionRepo{s} }

// Reports exposes the store as a ReportRepository.
func (s *Store) Reports() repository.ReportRepository { return reportRepo{s} }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByEmail[user.Email]; taken {
		return repository.ErrDuplicate
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	if !user.Role.Valid() {
		user.Role = domain.RoleUser
	}
	stored := *user
	s.users[user.ID] = &stored
	s.usersByEmail[user.Email] = user.ID
	return nil
}

func (r userRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Role = role
	user.UpdatedAt = s.now()
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *s.users[id]
	return &out, nil
}

func (r userRepo) ListByRoles(_ context.Context, roles ...domain.Role) ([]domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := domain.NewRoleSet(roles...)
	var result []domain.User
	for _, user := range s.users {
		if wanted.Contains(user.Role) {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type questionRepo struct{ s *Store }

func (r questionRepo) Create(_ context.Context, question *domain.Question) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[question.AuthorID]; !ok {
		return repository.ErrReferenceMissing
	}
	if _, taken := s.questionsBySlug[question.Slug]; taken {
		return repository.ErrDuplicate
	}
	now := s.now()
	question.ID = uuid.NewString()
	question.CreatedAt = now
	question.UpdatedAt = now
	question.ReportIDs = []string{}

	stored := *question
	stored.ReportIDs = []string{}
	s.questions[question.ID] = &stored
	s.questionsBySlug[question.Slug] = question.ID
	s.questionSeq[question.ID] = s.nextSeq()
	return nil
}

func (r questionRepo) Update(_ context.Context, question *domain.Question) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.questions[question.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = question.Title
	stored.Body = question.Body
	stored.UpdatedAt = s.now()
	question.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r questionRepo) GetByID(_ context.Context, id string) (*domain.Question, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyQuestion(question), nil
}

func (r questionRepo) GetBySlug(_ context.Context, slug string) (*domain.Question, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.questionsBySlug[slug]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyQuestion(s.questions[id]), nil
}

func (r questionRepo) List(_ context.Context, limit, offset int) ([]domain.Question, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	ids := make([]string, 0, len(s.questions))
	for id := range s.questions {
		ids = append(ids, id)
	}
	// newest first, like ORDER BY created_at DESC
	sort.Slice(ids, func(i, j int) bool {
		return s.questionSeq[ids[i]] > s.questionSeq[ids[j]]
	})
	if offset >= len(ids) {
		return nil, nil
	}
	ids = ids[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	result := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		result = append(result, *copyQuestion(s.questions[id]))
	}
	return result, nil
}

func (r questionRepo) Delete(_ context.Context, id string) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteQuestionLocked(id)
}

func (s *Store) deleteQuestionLocked(id string) (int, error) {
	question, ok := s.questions[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	removed := 0
	for reportID, report := range s.reports {
		if report.QuestionID == id {
			delete(s.reports, reportID)
			delete(s.reportSeq, reportID)
			removed++
		}
	}
	delete(s.questionsBySlug, question.Slug)
	delete(s.questionSeq, id)
	delete(s.questions, id)
	return removed, nil
}

func copyQuestion(q *domain.Question) *domain.Question {
	out := *q
	out.ReportIDs = append([]string{}, q.ReportIDs...)
	return &out
}

type reportRepo struct{ s *Store }

func (r reportRepo) Create(_ context.Context, report *domain.Report) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.questions[report.QuestionID]
	if !ok {
		return repository.ErrReferenceMissing
	}
	if report.ReporterID != nil {
		if _, ok := s.users[*report.ReporterID]; !ok {
			return repository.ErrReferenceMissing
		}
	}
	if report.Status == "" {
		report.Status = domain.ReportStatusUnresolved
	}
	report.ID = uuid.NewString()
	report.CreatedAt = s.now()

	stored := *report
	s.reports[report.ID] = &stored
	s.reportSeq[report.ID] = s.nextSeq()
	question.ReportIDs = append(question.ReportIDs, report.ID)
	return nil
}

func (r reportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *report
	return &out, nil
}

func (r reportRepo) List(_ context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Report
	for _, report := range s.reports {
		if filter.QuestionID != nil && report.QuestionID != *filter.QuestionID {
			continue
		}
		if filter.Status != nil && report.Status != *filter.Status {
			continue
		}
		matched = append(matched, report)
	}
	sort.Slice(matched, func(i, j int) bool {
		return s.reportSeq[matched[i].ID] < s.reportSeq[matched[j].ID]
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	result := make([]domain.Report, 0, len(matched))
	for _, report := range matched {
		result = append(result, *report)
	}
	return result, nil
}

func (r reportRepo) Resolve(_ context.Context, id string, outcome domain.ReportStatus, resolverID string) (*repository.ResolveResult, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if _, ok := s.questions[report.QuestionID]; !ok {
		return nil, pgx.ErrNoRows
	}
	if report.Status != domain.ReportStatusUnresolved {
		return nil, repository.ErrAlreadyResolved
	}
	if resolverID != "" {
		if _, ok := s.users[resolverID]; !ok {
			return nil, repository.ErrReferenceMissing
		}
	}

	now := s.now()
	report.Status = outcome
	report.ResolvedAt = &now
	if resolverID != "" {
		resolver := resolverID
		report.ResolvedBy = &resolver
	}
	out := *report
	result := &repository.ResolveResult{Report: &out}

	if outcome == domain.ReportStatusActioned {
		removed, err := s.deleteQuestionLocked(report.QuestionID)
		if err != nil {
			return nil, err
		}
		result.QuestionDeleted = true
		result.ReportsRemoved = removed
	}
	return result, nil
}
