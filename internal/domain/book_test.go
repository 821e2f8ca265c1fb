package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespace(t *testing.T) {
	tests := []struct {
		ns        Namespace
		endpoint  string
		filterKey string
	}{
		{NamespaceTopic, "/topics", "topics.id"},
		{NamespaceConcept, "/concepts", "concepts.id"},
	}

	for _, tt := range tests {
		t.Run(string(tt.ns), func(t *testing.T) {
			assert.True(t, tt.ns.IsValid())
			assert.Equal(t, tt.endpoint, tt.ns.Endpoint())
			assert.Equal(t, tt.filterKey, tt.ns.FilterKey())
		})
	}

	assert.False(t, Namespace("keyword").IsValid())
}

func TestCategoryID_String(t *testing.T) {
	id := CategoryID{Namespace: NamespaceTopic, ID: "T10555"}
	assert.Equal(t, "topics.id:T10555", id.String())
}

func TestYearRange(t *testing.T) {
	t.Run("valid range", func(t *testing.T) {
		r := YearRange{Start: 2021, End: 2025}
		require.NoError(t, r.Validate())
		assert.True(t, r.Contains(2021))
		assert.True(t, r.Contains(2025))
		assert.False(t, r.Contains(2020))
		assert.False(t, r.Contains(2026))
	})

	t.Run("single year", func(t *testing.T) {
		require.NoError(t, YearRange{Start: 2023, End: 2023}.Validate())
	})

	t.Run("inverted range", func(t *testing.T) {
		err := YearRange{Start: 2025, End: 2021}.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))

		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "end_year", vErr.Field)
	})
}

func TestSplitSubjects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "Marketing", []string{"Marketing"}},
		{"trims whitespace", " Marketing , Chemistry ", []string{"Marketing", "Chemistry"}},
		{"drops empties", "Marketing,,  ,Chemistry,", []string{"Marketing", "Chemistry"}},
		{"keeps duplicates", "Chemistry,Chemistry", []string{"Chemistry", "Chemistry"}},
		{"keeps inner spaces", "Computer Science", []string{"Computer Science"}},
		{"empty", "", []string{}},
		{"only commas", ", ,", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSubjects(tt.raw))
		})
	}
}
