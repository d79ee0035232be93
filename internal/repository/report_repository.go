package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/study-share/internal/domain"
)

// ReportFilter captures moderator search parameters.
type ReportFilter struct {
	QuestionID *string
	Status     *domain.ReportStatus
	Limit      int
	Offset     int
}

// ResolveResult describes what a resolution changed.
type ResolveResult struct {
	Report          *domain.Report
	QuestionDeleted bool
	ReportsRemoved  int
}

// ReportRepository manages reports filed against questions.
type ReportRepository interface {
	// Create appends a report to its question. A missing question yields
	// ErrReferenceMissing.
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
	// Resolve moves an unresolved report to outcome. Actioned reports take
	// their question (and its reports) down in the same transaction.
	Resolve(ctx context.Context, id string, outcome domain.ReportStatus, resolverID string) (*ResolveResult, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository builds repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

const reportColumns = `id, question_id, reporter_id, reason, status, resolved_by, resolved_at, created_at`

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (question_id, reporter_id, reason, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if report.Status == "" {
		report.Status = domain.ReportStatusUnresolved
	}
	err := r.pool.QueryRow(ctx, query,
		report.QuestionID,
		report.ReporterID,
		report.Reason,
		report.Status,
	).Scan(&report.ID, &report.CreatedAt)
	return mapPgError(err)
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	report, err := scanReport(r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.QuestionID != nil {
		args = append(args, *filter.QuestionID)
		clauses = append(clauses, fmt.Sprintf("question_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM reports WHERE %s ORDER BY seq ASC LIMIT %d OFFSET %d`,
		reportColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}

func (r *reportRepository) Resolve(ctx context.Context, id string, outcome domain.ReportStatus, resolverID string) (*ResolveResult, error) {
	var resolver *string
	if resolverID != "" {
		resolver = &resolverID
	}

	result := &ResolveResult{}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var questionID string
		if err := tx.QueryRow(ctx, `SELECT question_id FROM reports WHERE id=$1`, id).Scan(&questionID); err != nil {
			return err
		}
		// question before report, the same order Delete takes its locks in
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT true FROM questions WHERE id=$1 FOR UPDATE`, questionID).Scan(&exists); err != nil {
			return err
		}
		report, err := scanReport(tx.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if report.Status != domain.ReportStatusUnresolved {
			return ErrAlreadyResolved
		}

		if err := tx.QueryRow(ctx, `
            UPDATE reports SET status=$1, resolved_by=$2, resolved_at=NOW()
            WHERE id=$3 AND status=$4
            RETURNING resolved_at`,
			outcome, resolver, id, domain.ReportStatusUnresolved,
		).Scan(&report.ResolvedAt); err != nil {
			return err
		}
		report.Status = outcome
		report.ResolvedBy = resolver
		result.Report = report

		if outcome == domain.ReportStatusActioned {
			removed, err := deleteQuestionTx(ctx, tx, questionID)
			if err != nil {
				return err
			}
			result.QuestionDeleted = true
			result.ReportsRemoved = removed
		}
		return nil
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return result, nil
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var (
		report domain.Report
		status string
	)
	if err := row.Scan(
		&report.ID,
		&report.QuestionID,
		&report.ReporterID,
		&report.Reason,
		&status,
		&report.ResolvedBy,
		&report.ResolvedAt,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}
	report.Status = domain.ReportStatus(status)
	return &report, nil
}
