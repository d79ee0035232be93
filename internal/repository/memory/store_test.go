package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/study-share/internal/domain"
	"github.com/spec-kit/study-share/internal/repository"
)

func seedUser(t *testing.T, s *Store, email string) *domain.User {
	t.Helper()
	user := &domain.User{Name: email, Email: email, PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, s.Users().Create(context.Background(), user))
	return user
}

func seedQuestion(t *testing.T, s *Store, authorID, slug string) *domain.Question {
	t.Helper()
	q := &domain.Question{AuthorID: authorID, Title: slug, Body: "body", Slug: slug}
	require.NoError(t, s.Questions().Create(context.Background(), q))
	return q
}

func TestUserEmailUnique(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "levin@example.com")

	err := s.Users().Create(context.Background(), &domain.User{Email: "levin@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestQuestionRequiresAuthor(t *testing.T) {
	s := NewStore()
	err := s.Questions().Create(context.Background(), &domain.Question{AuthorID: "ghost", Slug: "x"})
	assert.ErrorIs(t, err, repository.ErrReferenceMissing)
}

func TestConcurrentSlugInsertOnlyOneWins(t *testing.T) {
	s := NewStore()
	author := seedUser(t, s, "a@example.com")

	const writers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Questions().Create(context.Background(), &domain.Question{
				AuthorID: author.ID, Title: "Calculus help", Body: "b", Slug: "calculus-help",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repository.ErrDuplicate):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicts)
}

func TestConcurrentReportsAllAppend(t *testing.T) {
	s := NewStore()
	author := seedUser(t, s, "a@example.com")
	q := seedQuestion(t, s, author.ID, "q")

	const reporters = 50
	var wg sync.WaitGroup
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Reports().Create(context.Background(), &domain.Report{
				QuestionID: q.ID, Reason: fmt.Sprintf("reason %d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.Questions().GetByID(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Len(t, got.ReportIDs, reporters)

	listed, err := s.Reports().List(context.Background(), repository.ReportFilter{QuestionID: &q.ID, Limit: 100})
	require.NoError(t, err)
	require.Len(t, listed, reporters)
	for i := range listed {
		assert.Equal(t, got.ReportIDs[i], listed[i].ID, "report order must match append order")
	}
}

func TestDeleteCascadesReports(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	author := seedUser(t, s, "a@example.com")
	q := seedQuestion(t, s, author.ID, "q")
	other := seedQuestion(t, s, author.ID, "other")

	var ids []string
	for i := 0; i < 3; i++ {
		r := &domain.Report{QuestionID: q.ID, Reason: "spam"}
		require.NoError(t, s.Reports().Create(ctx, r))
		ids = append(ids, r.ID)
	}
	keep := &domain.Report{QuestionID: other.ID, Reason: "spam"}
	require.NoError(t, s.Reports().Create(ctx, keep))

	removed, err := s.Questions().Delete(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	for _, id := range ids {
		_, err := s.Reports().GetByID(ctx, id)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	}
	_, err = s.Reports().GetByID(ctx, keep.ID)
	assert.NoError(t, err)

	_, err = s.Questions().Delete(ctx, q.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	// the slug is free again
	seedQuestion(t, s, author.ID, "q")
}

func TestResolveIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	author := seedUser(t, s, "a@example.com")
	q := seedQuestion(t, s, author.ID, "q")
	r := &domain.Report{QuestionID: q.ID, Reason: "off topic"}
	require.NoError(t, s.Reports().Create(ctx, r))

	res, err := s.Reports().Resolve(ctx, r.ID, domain.ReportStatusDismissed, author.ID)
	require.NoError(t, err)
	assert.False(t, res.QuestionDeleted)
	assert.Equal(t, domain.ReportStatusDismissed, res.Report.Status)
	require.NotNil(t, res.Report.ResolvedBy)
	assert.Equal(t, author.ID, *res.Report.ResolvedBy)

	_, err = s.Reports().Resolve(ctx, r.ID, domain.ReportStatusDismissed, author.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyResolved)
}

func TestResolveRequiresKnownResolver(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	author := seedUser(t, s, "a@example.com")
	q := seedQuestion(t, s, author.ID, "q")
	r := &domain.Report{QuestionID: q.ID, Reason: "spam"}
	require.NoError(t, s.Reports().Create(ctx, r))

	_, err := s.Reports().Resolve(ctx, r.ID, domain.ReportStatusActioned, "ghost")
	assert.ErrorIs(t, err, repository.ErrReferenceMissing)

	// nothing changed
	got, err := s.Reports().GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusUnresolved, got.Status)
	_, err = s.Questions().GetByID(ctx, q.ID)
	assert.NoError(t, err)
}

func TestResolveActionedDeletesQuestion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	author := seedUser(t, s, "a@example.com")
	q := seedQuestion(t, s, author.ID, "q")
	first := &domain.Report{QuestionID: q.ID, Reason: "spam"}
	second := &domain.Report{QuestionID: q.ID, Reason: "spam again"}
	require.NoError(t, s.Reports().Create(ctx, first))
	require.NoError(t, s.Reports().Create(ctx, second))

	res, err := s.Reports().Resolve(ctx, first.ID, domain.ReportStatusActioned, author.ID)
	require.NoError(t, err)
	assert.True(t, res.QuestionDeleted)
	assert.Equal(t, 2, res.ReportsRemoved)

	_, err = s.Questions().GetByID(ctx, q.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = s.Reports().Resolve(ctx, second.ID, domain.ReportStatusActioned, author.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestListQuestionsNewestFirst(t *testing.T) {
	s := NewStore()
	author := seedUser(t, s, "a@example.com")
	for _, slug := range []string{"one", "two", "three"} {
		seedQuestion(t, s, author.ID, slug)
	}

	page, err := s.Questions().List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Slug)
	assert.Equal(t, "two", page[1].Slug)

	rest, err := s.Questions().List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "one", rest[0].Slug)
}

func TestListByRoles(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUser(t, s, "u@example.com")
	admin := seedUser(t, s, "admin@example.com")
	require.NoError(t, s.Users().UpdateRole(ctx, admin.ID, domain.RoleAdmin))

	admins, err := s.Users().ListByRoles(ctx, domain.RoleAdmin, domain.RoleSuperAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, admin.ID, admins[0].ID)

	assert.ErrorIs(t, s.Users().UpdateRole(ctx, "missing", domain.RoleAdmin), pgx.ErrNoRows)
}
