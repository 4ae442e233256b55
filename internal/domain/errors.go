package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBlock     = errors.New("invalid block")
	ErrBlockNotFound    = errors.New("block not found")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("uniqueness conflict")
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrNoUser           = errors.New("no current user")
	ErrUnauthorized     = errors.New("unauthorized")
)

// FailureKind classifies the recoverable failures of a page editor.
type FailureKind string

const (
	LoadFailure   FailureKind = "load"
	SaveConflict  FailureKind = "save_conflict"
	SaveFailure   FailureKind = "save"
	UploadFailure FailureKind = "upload"
)

// Failure tags an error with the editor stage it came from. None of them are fatal.
type Failure struct {
	Kind    FailureKind
	BlockID string // set for upload failures
	Err     error
}

func (f *Failure) Error() string {
	if f.BlockID != "" {
		return fmt.Sprintf("%s failure (block %s): %v", f.Kind, f.BlockID, f.Err)
	}
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// FailureKindOf returns the kind of the first Failure in err's chain.
func FailureKindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
