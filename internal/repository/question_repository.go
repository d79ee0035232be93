package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/study-share/internal/domain"
)

// QuestionRepository encapsulates question persistence.
type QuestionRepository interface {
	// Create inserts the question. A taken slug yields ErrDuplicate; the
	// unique index decides, not a prior lookup.
	Create(ctx context.Context, question *domain.Question) error
	Update(ctx context.Context, question *domain.Question) error
	GetByID(ctx context.Context, id string) (*domain.Question, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Question, error)
	List(ctx context.Context, limit, offset int) ([]domain.Question, error)
	// Delete removes the question together with every report that references
	// it and returns how many reports went with it.
	Delete(ctx context.Context, id string) (int, error)
}

type questionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository instantiates repository.
func NewQuestionRepository(pool *pgxpool.Pool) QuestionRepository {
	return &questionRepository{pool: pool}
}

const questionColumns = `
        q.id, q.author_id, q.title, q.body, q.slug, q.created_at, q.updated_at,
        ARRAY(SELECT r.id::text FROM reports r WHERE r.question_id = q.id ORDER BY r.seq)`

func (r *questionRepository) Create(ctx context.Context, question *domain.Question) error {
	const query = `
        INSERT INTO questions (author_id, title, body, slug)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		question.AuthorID,
		question.Title,
		question.Body,
		question.Slug,
	).Scan(&question.ID, &question.CreatedAt, &question.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	question.ReportIDs = []string{}
	return nil
}

func (r *questionRepository) Update(ctx context.Context, question *domain.Question) error {
	const query = `
        UPDATE questions SET title=$1, body=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		question.Title,
		question.Body,
		question.ID,
	).Scan(&question.UpdatedAt)
	return mapPgError(err)
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	query := `SELECT` + questionColumns + ` FROM questions q WHERE q.id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *questionRepository) GetBySlug(ctx context.Context, slug string) (*domain.Question, error) {
	query := `SELECT` + questionColumns + ` FROM questions q WHERE q.slug=$1`
	return r.fetchSingle(ctx, query, slug)
}

func (r *questionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Question, error) {
	question, err := scanQuestion(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return question, nil
}

func (r *questionRepository) List(ctx context.Context, limit, offset int) ([]domain.Question, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT` + questionColumns + ` FROM questions q ORDER BY q.created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *question)
	}
	return result, rows.Err()
}

func (r *questionRepository) Delete(ctx context.Context, id string) (int, error) {
	var removed int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		removed, err = deleteQuestionTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return 0, mapPgError(err)
	}
	return removed, nil
}

// deleteQuestionTx removes reports first so the cascade holds even if the
// schema lost its ON DELETE clause.
func deleteQuestionTx(ctx context.Context, tx pgx.Tx, id string) (int, error) {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT true FROM questions WHERE id=$1 FOR UPDATE`, id).Scan(&exists); err != nil {
		return 0, err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM reports WHERE question_id=$1`, id)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id); err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var question domain.Question
	if err := row.Scan(
		&question.ID,
		&question.AuthorID,
		&question.Title,
		&question.Body,
		&question.Slug,
		&question.CreatedAt,
		&question.UpdatedAt,
		&question.ReportIDs,
	); err != nil {
		return nil, err
	}
	if question.ReportIDs == nil {
		question.ReportIDs = []string{}
	}
	return &question, nil
}
