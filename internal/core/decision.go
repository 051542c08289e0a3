package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/facebookgo/clock"
)

// PublishedMetadata is the currently live published state of the registry
// package, as reported by the registry.
type PublishedMetadata struct {
	Version       Semver // version the "latest" tag points at
	HighestSemver Semver // highest version ever published, tagged or not
	ContentHash   string
	LastModified  time.Time
}

// MetadataSource fetches the live published state of a package.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, name string) (*PublishedMetadata, error)
}

// Publisher pushes artifacts and moves dist-tags on the registry.
type Publisher interface {
	Publish(ctx context.Context, dir string, dryRun bool) error
	Tag(ctx context.Context, name, version, tag string) error
}

// Installer materializes what a consumer installing the package at the given
// version or dist-tag would get, returning the installed package root.
type Installer interface {
	InstallForInspection(ctx context.Context, name, versionOrTag string) (string, error)
}

// FileSink writes the artifact directory.
type FileSink interface {
	ClearDirectory(path string) error
	WriteDocument(path string, content []byte) error
}

// Manifest is the published package.json of the registry artifact. The
// descriptive fields are fixed; only Version and ContentHash change per
// publish.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	License     string `json:"license"`
	ContentHash string `json:"typesPublisherContentHash"`
}

const (
	manifestDescription = "A registry of everything published, mapping package names to their distribution tags."
	manifestLicense     = "MIT"

	readme = "This package contains a generated mapping of published package names to " +
		"their distribution tags and versions. It is produced and published by " +
		"automation; do not edit it by hand.\n"
)

// Config carries the explicit settings for one publish run.
type Config struct {
	PackageName      string
	OutputDir        string
	Cooldown         time.Duration // minimum age of the live package before republishing
	PropagationDelay time.Duration // wait between publish and verification
	DryRun           bool
	NotNeeded        []string // package names exempt from the subset check
}

// Outcome is the decision taken by a run. The three outcomes are mutually
// exclusive; at most one publish decision is made per invocation.
type Outcome int

const (
	OutcomeSkip Outcome = iota
	OutcomeRetagLatest
	OutcomePublishNew
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRetagLatest:
		return "retag-latest"
	case OutcomePublishNew:
		return "publish-new"
	default:
		return "skip"
	}
}

// SkipReason distinguishes why a run published nothing.
type SkipReason string

const (
	ReasonNone       SkipReason = ""
	ReasonUnmodified SkipReason = "unmodified"
	ReasonTooRecent  SkipReason = "changed too recently"
)

// Result reports the decision taken by one run.
type Result struct {
	Outcome    Outcome
	Reason     SkipReason
	Version    Semver // live tagged version at decision time
	NewVersion Semver // version promoted or published, when applicable
}

// Engine makes the publish decision for one run against injected
// collaborators, so the same logic runs against fakes in tests.
type Engine struct {
	cfg       Config
	metadata  MetadataSource
	publisher Publisher
	installer Installer
	sink      FileSink
	clock     clock.Clock
	logger    *log.Logger
}

// NewEngine wires an engine. A nil clk uses the real clock; a nil logger
// discards output.
func NewEngine(cfg Config, metadata MetadataSource, publisher Publisher, installer Installer, sink FileSink, clk clock.Clock, logger *log.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		cfg:       cfg,
		metadata:  metadata,
		publisher: publisher,
		installer: installer,
		sink:      sink,
		clock:     clk,
		logger:    logger,
	}
}

// Run makes at most one publish decision against candidate. Any returned
// error is fatal for this run and leaves the live registry untouched; a
// retried run starts over from freshly fetched metadata.
func (e *Engine) Run(ctx context.Context, candidate *RegistryDocument) (*Result, error) {
	live, err := e.metadata.FetchMetadata(ctx, e.cfg.PackageName)
	if err != nil {
		return nil, fmt.Errorf("fetching live metadata for %s: %w", e.cfg.PackageName, err)
	}

	// The registry package keeps a fixed 0.1.x scheme; anything else means
	// external state this automation cannot reason about.
	if live.Version.Major != 0 || live.Version.Minor != 1 {
		return nil, &PreconditionError{
			Reason: fmt.Sprintf("unexpected version scheme for %s: %s (want 0.1.x)", e.cfg.PackageName, live.Version),
		}
	}

	if live.HighestSemver != live.Version {
		return e.retagLatest(ctx, candidate, live)
	}

	hash, err := candidate.ContentHash()
	if err != nil {
		return nil, err
	}

	if hash != live.ContentHash {
		age := e.clock.Now().Sub(live.LastModified)
		if age > e.cfg.Cooldown {
			return e.publishNew(ctx, candidate, live, hash)
		}
		e.logger.Info("skipping publish", "reason", ReasonTooRecent, "age", age, "cooldown", e.cfg.Cooldown)
		if err := e.verifyInstalled(ctx, candidate, "latest"); err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeSkip, Reason: ReasonTooRecent, Version: live.Version}, nil
	}

	e.logger.Info("skipping publish", "reason", ReasonUnmodified, "hash", hash)
	if err := e.verifyInstalled(ctx, candidate, "latest"); err != nil {
		return nil, err
	}
	return &Result{Outcome: OutcomeSkip, Reason: ReasonUnmodified, Version: live.Version}, nil
}

// retagLatest recovers from a prior run that published a version but died
// before promoting it to "latest". The already-public bytes are promoted
// as-is after the subset check; nothing new is written, so no monotonic
// check applies here.
func (e *Engine) retagLatest(ctx context.Context, candidate *RegistryDocument, live *PublishedMetadata) (*Result, error) {
	e.logger.Warn("highest published version was never tagged latest",
		"latest", live.Version, "highest", live.HighestSemver)

	actual, err := e.installedDocument(ctx, live.HighestSemver.String())
	if err != nil {
		return nil, err
	}
	if err := ValidateSubset(actual, candidate, e.cfg.NotNeeded); err != nil {
		return nil, err
	}

	if e.cfg.DryRun {
		e.logger.Info("dry run: would tag latest", "version", live.HighestSemver)
	} else if err := e.publisher.Tag(ctx, e.cfg.PackageName, live.HighestSemver.String(), "latest"); err != nil {
		return nil, fmt.Errorf("tagging %s@%s latest: %w", e.cfg.PackageName, live.HighestSemver, err)
	}

	return &Result{Outcome: OutcomeRetagLatest, Version: live.Version, NewVersion: live.HighestSemver}, nil
}

// publishNew writes the artifact, publishes it under the staging tag, waits
// out registry propagation, verifies the published bytes never regress
// against the candidate, and only then promotes the new version to "latest".
func (e *Engine) publishNew(ctx context.Context, candidate *RegistryDocument, live *PublishedMetadata, hash string) (*Result, error) {
	next := Semver{Major: 0, Minor: 1, Patch: live.Version.Patch + 1}
	e.logger.Info("publishing new registry version", "version", next, "hash", hash)

	if err := e.writeArtifact(candidate, next, hash); err != nil {
		return nil, err
	}

	if err := e.publisher.Publish(ctx, e.cfg.OutputDir, e.cfg.DryRun); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", e.cfg.PackageName, err)
	}

	if e.cfg.PropagationDelay > 0 {
		e.logger.Info("waiting for registry propagation", "delay", e.cfg.PropagationDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.clock.After(e.cfg.PropagationDelay):
		}
	}

	// A dry run publishes nothing, so the new version cannot be installed;
	// fall back to the drift check against what is currently live.
	verifyTarget := next.String()
	if e.cfg.DryRun {
		verifyTarget = "latest"
	}
	if err := e.verifyInstalled(ctx, candidate, verifyTarget); err != nil {
		return nil, err
	}

	if e.cfg.DryRun {
		e.logger.Info("dry run: would tag latest", "version", next)
	} else if err := e.publisher.Tag(ctx, e.cfg.PackageName, next.String(), "latest"); err != nil {
		return nil, fmt.Errorf("tagging %s@%s latest: %w", e.cfg.PackageName, next, err)
	}

	return &Result{Outcome: OutcomePublishNew, Version: live.Version, NewVersion: next}, nil
}

// writeArtifact clears the output directory and lays down the publishable
// package: manifest, registry document, readme.
func (e *Engine) writeArtifact(candidate *RegistryDocument, version Semver, hash string) error {
	doc, err := candidate.Canonical()
	if err != nil {
		return err
	}

	manifest, err := json.MarshalIndent(Manifest{
		Name:        e.cfg.PackageName,
		Version:     version.String(),
		Description: manifestDescription,
		License:     manifestLicense,
		ContentHash: hash,
	}, "", "    ")
	if err != nil {
		return fmt.Errorf("serializing manifest: %w", err)
	}

	dir := e.cfg.OutputDir
	if err := e.sink.ClearDirectory(dir); err != nil {
		return err
	}
	if err := e.sink.WriteDocument(filepath.Join(dir, "package.json"), manifest); err != nil {
		return err
	}
	if err := e.sink.WriteDocument(filepath.Join(dir, "index.json"), doc); err != nil {
		return err
	}
	return e.sink.WriteDocument(filepath.Join(dir, "README.md"), []byte(readme))
}

// verifyInstalled checks that the artifact at versionOrTag never exceeds the
// candidate. The skip path inspects "latest" to catch drift introduced
// outside this workflow; the publish path inspects the freshly published
// version, whose bytes "latest" does not point at yet.
func (e *Engine) verifyInstalled(ctx context.Context, candidate *RegistryDocument, versionOrTag string) error {
	installed, err := e.installedDocument(ctx, versionOrTag)
	if err != nil {
		return err
	}
	if err := ValidateMonotonic(installed.Object(), candidate.Object()); err != nil {
		return fmt.Errorf("installed registry regressed against candidate: %w", err)
	}
	return nil
}

// installedDocument installs the package at versionOrTag and decodes the
// registry document it ships.
func (e *Engine) installedDocument(ctx context.Context, versionOrTag string) (*RegistryDocument, error) {
	root, err := e.installer.InstallForInspection(ctx, e.cfg.PackageName, versionOrTag)
	if err != nil {
		return nil, fmt.Errorf("installing %s@%s: %w", e.cfg.PackageName, versionOrTag, err)
	}
	data, err := os.ReadFile(filepath.Join(root, "index.json"))
	if err != nil {
		return nil, fmt.Errorf("reading installed registry document: %w", err)
	}
	return DecodeRegistry(data)
}
