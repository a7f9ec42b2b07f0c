package version

import (
	"errors"
	"fmt"
)

// PolicyErrorKind identifies why no version could be computed.
type PolicyErrorKind string

const (
	MissingLabel  PolicyErrorKind = "missing_label"
	AlreadyStable PolicyErrorKind = "already_stable"
)

var (
	ErrMissingLabel  = errors.New("no classification label (breaking, feature, revision or release) on pull request")
	ErrAlreadyStable = errors.New("release label applied to a project that is already at or above 1.0.0")
)

// PolicyError is returned when the version policy rejects a request.
type PolicyError struct {
	Kind    PolicyErrorKind
	Current Version
}

func (e *PolicyError) Error() string {
	switch e.Kind {
	case AlreadyStable:
		return fmt.Sprintf("%s (current version %s)", ErrAlreadyStable, e.Current)
	default:
		return ErrMissingLabel.Error()
	}
}

// Is lets callers match with errors.Is(err, ErrMissingLabel) and
// errors.Is(err, ErrAlreadyStable).
func (e *PolicyError) Is(target error) bool {
	switch target {
	case ErrMissingLabel:
		return e.Kind == MissingLabel
	case ErrAlreadyStable:
		return e.Kind == AlreadyStable
	}
	return false
}

// Next computes the version that follows current for the given label.
//
// Before 1.0.0 a breaking change bumps the minor component and a feature
// bumps the patch component. From 1.0.0 on they bump major and minor.
// A revision always bumps patch. A release promotes a pre-1.0 project to
// 1.0.0 and is rejected for a project that is already stable.
func Next(current Version, label Label) (Version, error) {
	pre1 := current.IsPre1()

	switch label {
	case LabelBreaking:
		if pre1 {
			return Version{Major: 0, Minor: current.Minor + 1, Patch: 0}, nil
		}
		return Version{Major: current.Major + 1, Minor: 0, Patch: 0}, nil

	case LabelFeature:
		if pre1 {
			return Version{Major: 0, Minor: current.Minor, Patch: current.Patch + 1}, nil
		}
		return Version{Major: current.Major, Minor: current.Minor + 1, Patch: 0}, nil

	case LabelRevision:
		return Version{Major: current.Major, Minor: current.Minor, Patch: current.Patch + 1}, nil

	case LabelRelease:
		if pre1 {
			return Version{Major: 1, Minor: 0, Patch: 0}, nil
		}
		return Version{}, &PolicyError{Kind: AlreadyStable, Current: current}
	}

	return Version{}, &PolicyError{Kind: MissingLabel, Current: current}
}

// Apply selects the actionable label from set and computes the next version.
func Apply(current Version, set LabelSet) (Version, Label, error) {
	label, err := set.Select()
	if err != nil {
		var pe *PolicyError
		if errors.As(err, &pe) {
			pe.Current = current
		}
		return Version{}, "", err
	}

	next, err := Next(current, label)
	if err != nil {
		return Version{}, label, err
	}
	return next, label, nil
}
