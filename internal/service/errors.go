package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by DocumentService that is not an
// infrastructure failure wraps exactly one of these.
var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")
)

var (
	ErrInvalidID         = fmt.Errorf("%w: id must be a UUID", ErrInvalidArgument)
	ErrVersionOutOfRange = fmt.Errorf("%w: requested version does not exist", ErrInvalidArgument)
	ErrContentRequired   = fmt.Errorf("%w: file content is required", ErrInvalidArgument)
	ErrEmptyACLPatch     = fmt.Errorf("%w: acl patch changes nothing", ErrInvalidArgument)
	ErrPageOutOfRange    = fmt.Errorf("%w: page is too large", ErrInvalidArgument)
	ErrTenantMismatch    = fmt.Errorf("%w: document belongs to another tenant", ErrForbidden)
	ErrNoTenant          = fmt.Errorf("%w: principal has no tenant", ErrForbidden)
)

func invalidArgument(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
}

func forbidden(err error) error {
	return fmt.Errorf("%w: %w", ErrForbidden, err)
}
