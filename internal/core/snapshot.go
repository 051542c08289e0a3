package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// RegistryDocument is the canonical registry: package name to its dist-tag
// map, with redundant aliases of "latest" filtered out.
type RegistryDocument struct {
	Entries map[string]map[string]string `json:"entries"`
}

// TagLookup is the read side of the dist-tag cache. Get returns the cached
// map only; it never fetches.
type TagLookup interface {
	Get(key string) (map[string]string, bool)
}

// PackageKeyer exposes the stable lookup key of a published package.
type PackageKeyer interface {
	Key() string
}

// PackageKey is a plain string package key.
type PackageKey string

func (k PackageKey) Key() string { return string(k) }

// BuildRegistry builds the canonical document for the given packages. Every
// package's dist-tag map must already be present in the cache, filled by the
// upstream version calculation; if any are missing the build fails naming
// all of them.
func BuildRegistry(packages []PackageKeyer, tags TagLookup) (*RegistryDocument, error) {
	entries := make(map[string]map[string]string, len(packages))
	var missing []string
	for _, pkg := range packages {
		key := pkg.Key()
		m, ok := tags.Get(key)
		if !ok {
			missing = append(missing, key)
			continue
		}
		entries[key] = FilterTags(m)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &PreconditionError{Reason: "dist-tags not cached for packages", MissingKeys: missing}
	}
	return &RegistryDocument{Entries: entries}, nil
}

// FilterTags keeps "latest" and every tag pointing at a version distinct
// from latest's. Aliases of the latest version carry no information the
// document needs, while every semantically distinct version survives.
// Idempotent.
func FilterTags(tags map[string]string) map[string]string {
	latest := tags["latest"]
	out := make(map[string]string, len(tags))
	for tag, version := range tags {
		if tag == "latest" || version != latest {
			out[tag] = version
		}
	}
	return out
}

// Canonical returns the canonical serialization. encoding/json emits map
// keys sorted, so identical entries always produce identical bytes.
func (d *RegistryDocument) Canonical() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("serializing registry document: %w", err)
	}
	return b, nil
}

// ContentHash returns the SHA-256 hex digest of the canonical serialization,
// used to detect whether the logical content changed between runs.
func (d *RegistryDocument) ContentHash() (string, error) {
	b, err := d.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Object converts the document into the validation model.
func (d *RegistryDocument) Object() Object {
	entries := make(Object, len(d.Entries))
	for name, tags := range d.Entries {
		m := make(Object, len(tags))
		for tag, version := range tags {
			m[tag] = String(version)
		}
		entries[name] = m
	}
	return Object{"entries": entries}
}

// DecodeRegistry parses a serialized registry document.
func DecodeRegistry(data []byte) (*RegistryDocument, error) {
	var d RegistryDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding registry document: %w", err)
	}
	if d.Entries == nil {
		d.Entries = map[string]map[string]string{}
	}
	return &d, nil
}
