package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDoc() Object {
	return Object{
		"entries": Object{
			"react": Object{"latest": String("18.3.1")},
			"node": Object{
				"latest": String("20.11.1"),
				"ts4.8":  String("18.19.0"),
			},
		},
		"count":      Number(2),
		"deprecated": Bool(false),
	}
}

func TestValidateMonotonicReflexive(t *testing.T) {
	doc := sampleDoc()
	require.NoError(t, ValidateMonotonic(doc, doc))
}

func TestValidateMonotonicExtraKeysInNewerAllowed(t *testing.T) {
	older := Object{"a": String("1.0.0")}
	newer := Object{"a": String("1.0.0"), "b": String("0.0.1")}
	require.NoError(t, ValidateMonotonic(older, newer))
}

func TestValidateMonotonicMissingKey(t *testing.T) {
	older := Object{"entries": Object{"react": Object{"latest": String("18.3.1")}}}
	newer := Object{"entries": Object{}}

	err := ValidateMonotonic(older, newer)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMonotonicity)

	var mErr *MonotonicityError
	require.ErrorAs(t, err, &mErr)
	require.Equal(t, "entries/react", mErr.Path)
	require.True(t, mErr.Missing)
}

func TestValidateMonotonicSemverRegression(t *testing.T) {
	older := Object{"entries": Object{"react": Object{"latest": String("18.3.1")}}}
	newer := Object{"entries": Object{"react": Object{"latest": String("18.3.0")}}}

	err := ValidateMonotonic(older, newer)
	require.ErrorIs(t, err, ErrMonotonicity)

	var mErr *MonotonicityError
	require.ErrorAs(t, err, &mErr)
	require.Equal(t, "entries/react/latest", mErr.Path)
	require.Equal(t, "18.3.1", mErr.Older)
	require.Equal(t, "18.3.0", mErr.Newer)
}

func TestValidateMonotonicSemverNotLexical(t *testing.T) {
	// "1.10.0" sorts before "1.9.0" lexically; version order must win.
	older := Object{"v": String("1.9.0")}
	newer := Object{"v": String("1.10.0")}
	require.NoError(t, ValidateMonotonic(older, newer))
}

func TestValidateMonotonicLexicalFallback(t *testing.T) {
	require.NoError(t, ValidateMonotonic(Object{"tag": String("alpha")}, Object{"tag": String("beta")}))

	err := ValidateMonotonic(Object{"tag": String("beta")}, Object{"tag": String("alpha")})
	require.ErrorIs(t, err, ErrMonotonicity)
}

func TestValidateMonotonicNumberRegression(t *testing.T) {
	require.NoError(t, ValidateMonotonic(Object{"count": Number(2)}, Object{"count": Number(3)}))

	err := ValidateMonotonic(Object{"count": Number(3)}, Object{"count": Number(2)})
	require.ErrorIs(t, err, ErrMonotonicity)

	var mErr *MonotonicityError
	require.ErrorAs(t, err, &mErr)
	require.Equal(t, "count", mErr.Path)
}

func TestValidateMonotonicBoolMustBeEqual(t *testing.T) {
	require.NoError(t, ValidateMonotonic(Object{"flag": Bool(true)}, Object{"flag": Bool(true)}))

	for _, newer := range []Value{Bool(false), String("true")} {
		err := ValidateMonotonic(Object{"flag": Bool(true)}, Object{"flag": newer})
		require.ErrorIs(t, err, ErrMonotonicity)
	}
}

func TestValidateMonotonicShapeChange(t *testing.T) {
	older := Object{"entries": Object{"react": Object{"latest": String("18.3.1")}}}
	newer := Object{"entries": String("gone")}

	err := ValidateMonotonic(older, newer)
	require.ErrorIs(t, err, ErrMonotonicity)

	var mErr *MonotonicityError
	require.ErrorAs(t, err, &mErr)
	require.Equal(t, "entries", mErr.Path)
}

func TestDecodeObjectRejectsArrays(t *testing.T) {
	_, err := DecodeObject([]byte(`{"entries": {"a": ["1.0.0"]}}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "entries/a")
}

func TestDecodeObjectRoundTrip(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"entries":{"react":{"latest":"18.3.1"}},"count":2,"flag":true}`))
	require.NoError(t, err)
	require.NoError(t, ValidateMonotonic(obj, obj))

	entries, ok := obj["entries"].(Object)
	require.True(t, ok)
	react, ok := entries["react"].(Object)
	require.True(t, ok)
	require.Equal(t, String("18.3.1"), react["latest"])
	require.Equal(t, Number(2), obj["count"])
	require.Equal(t, Bool(true), obj["flag"])
}

func TestMonotonicityErrorUnwraps(t *testing.T) {
	err := &MonotonicityError{Path: "a", Older: "2", Newer: "1"}
	require.True(t, errors.Is(err, ErrMonotonicity))
}
