package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type mapLookup map[string]map[string]string

func (m mapLookup) Get(key string) (map[string]string, bool) {
	v, ok := m[key]
	return v, ok
}

func keys(names ...string) []PackageKeyer {
	out := make([]PackageKeyer, len(names))
	for i, name := range names {
		out[i] = PackageKey(name)
	}
	return out
}

func TestBuildRegistry(t *testing.T) {
	lookup := mapLookup{
		"react": {"latest": "18.3.1", "next": "19.0.0-rc"},
		"node":  {"latest": "20.11.1"},
	}

	doc, err := BuildRegistry(keys("react", "node"), lookup)
	require.NoError(t, err)
	require.Equal(t, map[string]map[string]string{
		"react": {"latest": "18.3.1", "next": "19.0.0-rc"},
		"node":  {"latest": "20.11.1"},
	}, doc.Entries)
}

func TestBuildRegistryDropsLatestAliases(t *testing.T) {
	// The beta tag aliases the latest version and carries no information.
	lookup := mapLookup{"pkg": {"latest": "1.0.0", "beta": "1.0.0"}}

	doc, err := BuildRegistry(keys("pkg"), lookup)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"latest": "1.0.0"}, doc.Entries["pkg"])
}

func TestBuildRegistryReportsEveryMissingKey(t *testing.T) {
	lookup := mapLookup{"react": {"latest": "18.3.1"}}

	_, err := BuildRegistry(keys("react", "zebra", "alpha"), lookup)
	require.ErrorIs(t, err, ErrPrecondition)

	var pErr *PreconditionError
	require.ErrorAs(t, err, &pErr)
	require.Equal(t, []string{"alpha", "zebra"}, pErr.MissingKeys)
}

func TestBuildRegistryDeterministic(t *testing.T) {
	lookup := mapLookup{
		"b": {"latest": "2.0.0", "old": "1.0.0"},
		"a": {"latest": "1.0.0"},
		"c": {"latest": "3.0.0"},
	}

	first, err := BuildRegistry(keys("a", "b", "c"), lookup)
	require.NoError(t, err)
	second, err := BuildRegistry(keys("c", "b", "a"), lookup)
	require.NoError(t, err)

	fb, err := first.Canonical()
	require.NoError(t, err)
	sb, err := second.Canonical()
	require.NoError(t, err)
	require.Equal(t, fb, sb)

	fh, err := first.ContentHash()
	require.NoError(t, err)
	sh, err := second.ContentHash()
	require.NoError(t, err)
	require.Equal(t, fh, sh)
	require.Len(t, fh, 64)
}

func TestFilterTagsIdempotent(t *testing.T) {
	tags := map[string]string{
		"latest": "2.0.0",
		"beta":   "2.0.0",
		"next":   "3.0.0-rc",
		"old":    "1.0.0",
	}

	once := FilterTags(tags)
	twice := FilterTags(once)
	require.Equal(t, once, twice)
	require.Equal(t, map[string]string{"latest": "2.0.0", "next": "3.0.0-rc", "old": "1.0.0"}, once)
}

func TestFilterTagsWithoutLatest(t *testing.T) {
	tags := map[string]string{"next": "3.0.0-rc"}
	require.Equal(t, tags, FilterTags(tags))
}

func TestRegistryDocumentObject(t *testing.T) {
	doc := &RegistryDocument{Entries: map[string]map[string]string{
		"react": {"latest": "18.3.1"},
	}}

	obj := doc.Object()
	require.NoError(t, ValidateMonotonic(obj, obj))

	entries, ok := obj["entries"].(Object)
	require.True(t, ok)
	react, ok := entries["react"].(Object)
	require.True(t, ok)
	require.Equal(t, String("18.3.1"), react["latest"])
}

func TestDecodeRegistryRoundTrip(t *testing.T) {
	doc := &RegistryDocument{Entries: map[string]map[string]string{
		"react": {"latest": "18.3.1", "next": "19.0.0-rc"},
	}}

	b, err := doc.Canonical()
	require.NoError(t, err)

	decoded, err := DecodeRegistry(b)
	require.NoError(t, err)
	require.Equal(t, doc.Entries, decoded.Entries)
}

func TestDecodeRegistryEmpty(t *testing.T) {
	decoded, err := DecodeRegistry([]byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, decoded.Entries)
	require.Empty(t, decoded.Entries)
}
