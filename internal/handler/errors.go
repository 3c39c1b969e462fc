package handler

import (
	"errors"
	"net/http"

	"qrattend/internal/apperror"
	"qrattend/internal/attendance"
)

func toAppError(err error) *apperror.AppError {
	switch {
	case errors.Is(err, attendance.ErrValidation):
		return apperror.Wrap(err, apperror.CodeInvalidInput, err.Error(), http.StatusBadRequest)
	case errors.Is(err, attendance.ErrConfirmationRequired):
		return apperror.Wrap(err, apperror.CodeConfirmRequired, "an active session exists; resend with replace=true", http.StatusConflict)
	case errors.Is(err, attendance.ErrStaleSession):
		return apperror.Wrap(err, apperror.CodeStaleSession, "this QR code is no longer valid", http.StatusGone)
	case errors.Is(err, attendance.ErrDuplicate):
		return apperror.Wrap(err, apperror.CodeDuplicate, "already checked in for this session", http.StatusConflict)
	case errors.Is(err, attendance.ErrNotFound):
		return apperror.Wrap(err, apperror.CodeNotFound, "session not found", http.StatusNotFound)
	case errors.Is(err, attendance.ErrStore):
		return apperror.Wrap(err, apperror.CodeStoreUnavailable, "storage is unavailable, try again", http.StatusServiceUnavailable)
	}
	return apperror.As(err)
}
