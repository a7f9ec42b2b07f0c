package merge

import (
	"errors"
	"fmt"
)

// ErrAlreadyMerged is returned for a pull request the hosting service reports
// as merged. Such a request is never processed again.
var ErrAlreadyMerged = errors.New("pull request is already merged")

// AbortError ends a run. State is the last state the run reached before the
// failure.
type AbortError struct {
	State State
	Err   error
}

func (e *AbortError) Error() string {
	return e.Err.Error()
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// MergeConflictError reports that the pull request could not be merged
// cleanly. Detail holds the merge tool's conflict report.
type MergeConflictError struct {
	Branch string
	Base   string
	Detail string
	Err    error
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict merging %s into %s", e.Branch, e.Base)
}

func (e *MergeConflictError) Unwrap() error {
	return e.Err
}

// PublishError reports a rejected or failed push. Nothing reached the remote.
type PublishError struct {
	Ref string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("push to origin/%s rejected: %v", e.Ref, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// FilesystemError reports a failure creating, reading, writing or removing
// local files.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
