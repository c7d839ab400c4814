// internal/services/common.go
package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// Actor is the authenticated caller as resolved by the auth middleware.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// CanManage reports whether the actor may modify a resource owned by ownerID.
func (a Actor) CanManage(ownerID uuid.UUID) bool {
	return a.ID == ownerID || a.Role.IsStaff()
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperrors.Validation("%s must be a valid identifier", field)
	}
	return id, nil
}

// lookupError converts a failed First/Take into a NotFound or internal error.
func lookupError(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource)
	}
	return apperrors.Internalf(err, "load %s", resource)
}

// isDuplicate reports a unique-constraint violation. gorm translates most
// drivers' errors to ErrDuplicatedKey; the string checks cover the rest.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// validate runs struct validation and wraps failures as a validation error
// whose message names the first offending field.
func validate(req interface{}) error {
	err := utils.ValidateStruct(req)
	if err == nil {
		return nil
	}
	if details := utils.GetValidationErrors(err); len(details) > 0 {
		return &apperrors.Error{Kind: apperrors.ErrValidation, Message: details[0].Message, Err: err}
	}
	return apperrors.Validation("invalid request")
}
