package application

import (
	"errors"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

const (
	msgDuplicateActive   = "an earlier opinion process for this folio has not been finalized"
	msgCaseStatusFailed  = "the case status could not be updated; the opinion status was reverted"
	msgCompensationAlso  = "the case status could not be updated and reverting the opinion status also failed"
	msgOpinionUpdated    = "opinion updated successfully"
	msgOpinionNotFound   = "opinion not found"
	msgOpinionUpdateFail = "error updating the opinion"
)

// mapError turns adapter errors into domain error kinds. Errors that already carry a
// kind pass through unchanged; anything unrecognised is a persistence failure.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}
	switch {
	case errors.Is(err, ports.ErrActiveOpinionExists):
		return &domain.Error{Kind: domain.KindConflict, Msg: msgDuplicateActive, Err: err}
	case errors.Is(err, ports.ErrNotFound):
		return &domain.Error{Kind: domain.KindNotFound, Msg: op, Err: err}
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return &domain.Error{Kind: domain.KindConflict, Msg: "idempotency key reused with a different request", Err: err}
	}
	return domain.Persistence(op, err)
}

// notFoundAs maps a repository miss to a NotFound with a caller-specific message.
func notFoundAs(err error, format string, args ...any) error {
	if errors.Is(err, ports.ErrNotFound) {
		return domain.NotFound(format, args...)
	}
	return err
}
