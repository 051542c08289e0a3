package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks across the workflow. All three are fatal
// for the run; nothing is tagged latest once one is raised.
var (
	ErrPrecondition = errors.New("precondition violated")
	ErrMonotonicity = errors.New("monotonicity violated")
	ErrSubset       = errors.New("subset violated")
)

// PreconditionError reports external state the automation cannot safely
// reason about: a version-scheme deviation on the live package, or dist-tag
// entries missing from the cache. MissingKeys carries every absent key, not
// just the first, so one failed run is enough to diagnose.
type PreconditionError struct {
	Reason      string
	MissingKeys []string
}

func (e *PreconditionError) Error() string {
	if len(e.MissingKeys) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.MissingKeys, ", "))
	}
	return e.Reason
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// MonotonicityError reports a field of the newer document that regressed
// below, or went missing against, the older document.
type MonotonicityError struct {
	Path    string
	Older   string
	Newer   string
	Missing bool // the key exists in older but not in newer
}

func (e *MonotonicityError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s: key missing from newer document (older value %q)", e.Path, e.Older)
	}
	return fmt.Sprintf("%s: newer value %q may not be less than older value %q", e.Path, e.Newer, e.Older)
}

func (e *MonotonicityError) Unwrap() error { return ErrMonotonicity }

// SubsetError reports live registry entries that neither the candidate
// document nor the exemption list explains.
type SubsetError struct {
	Keys []string // sorted
}

func (e *SubsetError) Error() string {
	return fmt.Sprintf("live registry contains entries not in the candidate or exemption list: %s",
		strings.Join(e.Keys, ", "))
}

func (e *SubsetError) Unwrap() error { return ErrSubset }
