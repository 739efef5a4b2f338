package repository

import (
	"errors"
	"fmt"

	model "github.com/okian/elovote/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrInvalidUpdate  = errors.New("invalid rating update")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrClosed         = errors.New("store closed")
)

// unavailable marks err as a medium failure while keeping it in the chain.
func unavailable(err error) error {
	if err == nil || errors.Is(err, model.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrUnavailable, err)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", model.ErrNotFound, id)
}
