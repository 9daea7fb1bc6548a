package foundry

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError carries the aggregated schema violations that blocked an
// operation. It is terminal for the attempt; the caller must correct the
// document before retrying.
type ValidationError struct {
	Layer  LayerKind
	Issues []string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Issues) == 0 {
		return fmt.Sprintf("foundry: %s document failed validation", e.Layer)
	}
	return fmt.Sprintf("foundry: %s document failed validation: %s", e.Layer, strings.Join(e.Issues, "; "))
}

// PermissionError means the caller has no write access to the bound
// repository. Viewing remains allowed.
type PermissionError struct {
	RepositoryURI string
	Err           error
}

func (e *PermissionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("foundry: no write access to %s: %v", e.RepositoryURI, e.Err)
	}
	return fmt.Sprintf("foundry: no write access to %s", e.RepositoryURI)
}

func (e *PermissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NotFoundError means a layer document is absent from its repository. It
// triggers new-branch bootstrap rather than failing the load.
type NotFoundError struct {
	RepositoryURI string
	FilePath      string
	Branch        string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("foundry: %s@%s: %s not found", e.RepositoryURI, e.Branch, e.FilePath)
}

// SizeLimitError means a serialized document exceeded the hard write limit.
// No network call is attempted once it is raised.
type SizeLimitError struct {
	Layer LayerKind
	Size  int
	Limit int
}

func (e *SizeLimitError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("foundry: %s document is %d bytes, exceeds limit of %d", e.Layer, e.Size, e.Limit)
}

// DivergenceError means the remote content for a layer changed since the
// local baseline was taken. Saving and exporting are blocked until the caller
// resyncs.
type DivergenceError struct {
	Layer   LayerKind
	LayerID string
}

func (e *DivergenceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.LayerID == "" {
		return fmt.Sprintf("foundry: %s layer diverged from remote since baseline", e.Layer)
	}
	return fmt.Sprintf("foundry: %s layer %q diverged from remote since baseline", e.Layer, e.LayerID)
}

// SessionError means an operation referenced a nonexistent edit or override
// session. This is a caller error, not an environmental failure.
type SessionError struct {
	SessionID string
	Op        string
}

func (e *SessionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("foundry: %s: no such edit session %q", e.Op, e.SessionID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPermission reports whether err wraps a PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsDivergence reports whether err wraps a DivergenceError.
func IsDivergence(err error) bool {
	var de *DivergenceError
	return errors.As(err, &de)
}
