package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("missing required field")
	ErrConfirmationRequired = errors.New("an active session already exists")
	ErrStaleSession         = errors.New("session is not the active session")
	ErrDuplicate            = errors.New("attendance already recorded")
	ErrNotFound             = errors.New("no active session")
	ErrStore                = errors.New("store unavailable")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
