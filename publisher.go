// Package publisher automates publishing the generated registry manifest to
// npm, gated so the published artifact is never rolled back or republished
// redundantly.
//
// One run fetches the live metadata for the registry package, builds the
// candidate document from cached dist-tag maps, and picks exactly one of
// retag-latest, publish-new, or skip:
//
//	engine := publisher.NewEngine(cfg, metadata, pub, installer, sink, nil, logger)
//	result, err := engine.Run(ctx, candidate)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.Outcome)
//
// Every transition is gated: a candidate whose fields regress below the
// installed artifact, or a live registry with entries the candidate cannot
// explain, aborts the run before anything is tagged "latest".
package publisher

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/publisher/internal/core"
)

// Re-export types from internal/core
type (
	// Semver is a three-component semantic version.
	Semver = core.Semver

	// RegistryDocument maps package names to their dist-tag maps.
	RegistryDocument = core.RegistryDocument

	// PublishedMetadata is the live published state of the registry package.
	PublishedMetadata = core.PublishedMetadata

	// Engine decides whether to retag, publish, or skip.
	Engine = core.Engine

	// Config carries the explicit settings for one publish run.
	Config = core.Config

	// Result reports the decision taken by one run.
	Result = core.Result

	// Outcome is the decision taken by a run.
	Outcome = core.Outcome

	// SkipReason distinguishes why a run published nothing.
	SkipReason = core.SkipReason

	// Manifest is the published package.json of the registry artifact.
	Manifest = core.Manifest

	// Object is the tagged-union document model used by the validators.
	Object = core.Object

	// PackageKey is a plain string package key.
	PackageKey = core.PackageKey
)

// Re-export constants
const (
	OutcomeSkip        = core.OutcomeSkip
	OutcomeRetagLatest = core.OutcomeRetagLatest
	OutcomePublishNew  = core.OutcomePublishNew

	ReasonUnmodified = core.ReasonUnmodified
	ReasonTooRecent  = core.ReasonTooRecent
)

// Re-export errors
var (
	ErrPrecondition = core.ErrPrecondition
	ErrMonotonicity = core.ErrMonotonicity
	ErrSubset       = core.ErrSubset
)

// Error types
type (
	PreconditionError = core.PreconditionError
	MonotonicityError = core.MonotonicityError
	SubsetError       = core.SubsetError
)

// ParseSemver parses a "major.minor.patch" version string.
var ParseSemver = core.ParseSemver

// BuildRegistry builds the canonical registry document from cached dist-tag
// maps, failing fast with every missing cache key.
var BuildRegistry = core.BuildRegistry

// FilterTags drops dist-tags that alias the "latest" version.
var FilterTags = core.FilterTags

// ValidateMonotonic checks that a newer document never regresses below an
// older one.
var ValidateMonotonic = core.ValidateMonotonic

// ValidateSubset checks that the live registry's entries are explained by
// the candidate plus the exemption list.
var ValidateSubset = core.ValidateSubset

// NewEngine wires a decision engine from collaborators.
var NewEngine = core.NewEngine

// DecodeObject parses raw JSON into the validation document model.
var DecodeObject = core.DecodeObject

// DecodeRegistry parses a serialized registry document.
var DecodeRegistry = core.DecodeRegistry

// ParsePackageKey resolves a package key that is either a bare npm name
// ("@types/react") or a package URL ("pkg:npm/@types/react").
func ParsePackageKey(key string) (string, error) {
	if !strings.HasPrefix(key, "pkg:") {
		return key, nil
	}

	p, err := purl.Parse(key)
	if err != nil {
		return "", fmt.Errorf("parsing package key %q: %w", key, err)
	}
	if p.Type != "npm" {
		return "", fmt.Errorf("package key %q: unsupported ecosystem %q", key, p.Type)
	}
	return p.FullName(), nil
}
