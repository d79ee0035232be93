package service

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/study-share/internal/repository"
	apperrors "github.com/spec-kit/study-share/pkg/util/errorutil"
)

// restricted is the only message an authorization failure carries.
const restricted = "restricted"

func forbidden() error {
	return apperrors.NewForbidden(restricted)
}

// notFoundOr maps a missing row onto a NotFound for resource and wraps the rest.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.MapError(err)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
