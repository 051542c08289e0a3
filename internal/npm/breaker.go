package npm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/git-pkgs/publisher/client"
	"github.com/git-pkgs/publisher/internal/core"
)

// BreakerRegistry wraps a Registry with a circuit breaker so a flapping
// registry fails fast instead of stalling every operation of the run.
type BreakerRegistry struct {
	reg     *Registry
	breaker *circuit.Breaker
}

// NewBreakerRegistry creates the wrapper. The breaker trips after 5
// consecutive failures and resets with exponential backoff.
func NewBreakerRegistry(reg *Registry) *BreakerRegistry {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	return &BreakerRegistry{
		reg:     reg,
		breaker: circuit.NewBreakerWithOptions(opts),
	}
}

func (b *BreakerRegistry) call(op func() error) error {
	if !b.breaker.Ready() {
		return fmt.Errorf("circuit breaker open for %s: %w", b.reg.baseURL, client.ErrUpstreamDown)
	}
	return b.breaker.Call(op, 0)
}

// FetchMetadata wraps Registry.FetchMetadata with circuit breaker logic.
func (b *BreakerRegistry) FetchMetadata(ctx context.Context, name string) (*core.PublishedMetadata, error) {
	var meta *core.PublishedMetadata
	err := b.call(func() error {
		var err error
		meta, err = b.reg.FetchMetadata(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// DistTags wraps Registry.DistTags with circuit breaker logic.
func (b *BreakerRegistry) DistTags(ctx context.Context, name string) (map[string]string, error) {
	var tags map[string]string
	err := b.call(func() error {
		var err error
		tags, err = b.reg.DistTags(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// Tag wraps Registry.Tag with circuit breaker logic.
func (b *BreakerRegistry) Tag(ctx context.Context, name, version, tag string) error {
	return b.call(func() error {
		return b.reg.Tag(ctx, name, version, tag)
	})
}

// InstallForInspection wraps Registry.InstallForInspection with circuit
// breaker logic.
func (b *BreakerRegistry) InstallForInspection(ctx context.Context, name, versionOrTag string) (string, error) {
	var root string
	err := b.call(func() error {
		var err error
		root, err = b.reg.InstallForInspection(ctx, name, versionOrTag)
		return err
	})
	if err != nil {
		return "", err
	}
	return root, nil
}

// Publish delegates to Registry.Publish. The publish runs through the local
// npm CLI, not the HTTP path, so the breaker does not gate it.
func (b *BreakerRegistry) Publish(ctx context.Context, dir string, dryRun bool) error {
	return b.reg.Publish(ctx, dir, dryRun)
}

// State returns the breaker state for health logging.
func (b *BreakerRegistry) State() string {
	if b.breaker.Tripped() {
		return "open"
	}
	return "closed"
}
