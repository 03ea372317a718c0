package query

import (
	"errors"

	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	"github.com/kirinyoku/raffle-go/internal/repository"
)

// notFound turns a missing row into the lifecycle error the transport maps to 404.
func notFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return lifecycle.NotFoundError{Resource: resource}
	}
	return err
}
