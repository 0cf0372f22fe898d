package service

import (
	"errors"

	"github.com/joeyave/scala-roster/repository"
)

var (
	ErrNotFound = repository.ErrNotFound

	ErrEmptySubmission       = errors.New("roster has no assignments")
	ErrUnresolvedMember      = errors.New("member not found in directory")
	ErrCapacityExceeded      = errors.New("capacity exceeded")
	ErrInvalidServiceDate    = errors.New("invalid service date")
	ErrUnknownRole           = errors.New("unknown leadership role")
	ErrUnknownAppearanceType = errors.New("unknown appearance type")

	ErrPersistence          = errors.New("roster store write failed")
	ErrDuplicateServiceDate = errors.New("a roster for this service date already exists")

	ErrForbidden    = errors.New("actor is not allowed to manage rosters")
	ErrUnauthorized = errors.New("member is not assigned to this roster")
)

// IsValidationError reports whether err rejects the submitted input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptySubmission,
		ErrUnresolvedMember,
		ErrCapacityExceeded,
		ErrInvalidServiceDate,
		ErrUnknownRole,
		ErrUnknownAppearanceType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateServiceDate
	default:
		return errors.Join(ErrPersistence, err)
	}
}
