package openalex

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWork_Year(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		year   int
		wantOK bool
	}{
		{"integer", `2022`, 2022, true},
		{"numeric string", `"2019"`, 2019, true},
		{"null", `null`, 0, false},
		{"float", `2020.5`, 0, false},
		{"text", `"unknown"`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w Work
			require.NoError(t, json.Unmarshal([]byte(`{"publication_year":`+tt.raw+`}`), &w))

			year, ok := w.Year()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.year, year)
		})
	}

	t.Run("missing field", func(t *testing.T) {
		var w Work
		require.NoError(t, json.Unmarshal([]byte(`{}`), &w))

		_, ok := w.Year()
		assert.False(t, ok)
	})
}

func TestWork_DOIURL(t *testing.T) {
	t.Run("prefers ids.doi", func(t *testing.T) {
		w := Work{DOI: "https://doi.org/10.1/top", IDs: IDs{DOI: "https://doi.org/10.1/ids"}}
		assert.Equal(t, "https://doi.org/10.1/ids", w.DOIURL())
	})

	t.Run("falls back to top-level doi", func(t *testing.T) {
		w := Work{DOI: " https://doi.org/10.1/top "}
		assert.Equal(t, "https://doi.org/10.1/top", w.DOIURL())
	})

	t.Run("empty when absent", func(t *testing.T) {
		assert.Equal(t, "", Work{}.DOIURL())
	})
}

func TestWork_DecodesNestedFields(t *testing.T) {
	raw := `{
		"id": "https://openalex.org/W42",
		"title": "Organic Chemistry",
		"language": "en",
		"authorships": [
			{"author_position": "first", "author": {"display_name": "Ada Lovelace"}},
			{"author_position": "last", "author": null}
		],
		"primary_location": {
			"landing_page_url": "https://example.org/book",
			"pdf_url": null,
			"source": {"display_name": "Example Press"}
		},
		"open_access": {"is_oa": true, "oa_url": "https://example.org/book.pdf"}
	}`

	var w Work
	require.NoError(t, json.Unmarshal([]byte(raw), &w))

	require.Len(t, w.Authorships, 2)
	assert.Equal(t, "Ada Lovelace", w.Authorships[0].Author.DisplayName)
	assert.Nil(t, w.Authorships[1].Author)
	require.NotNil(t, w.PrimaryLocation)
	assert.Equal(t, "https://example.org/book", w.PrimaryLocation.LandingPageURL)
	assert.Equal(t, "", w.PrimaryLocation.PDFURL)
	assert.Equal(t, "Example Press", w.PrimaryLocation.Source.DisplayName)
	require.NotNil(t, w.OpenAccess)
	assert.True(t, w.OpenAccess.IsOA)
}

func TestCategory_ShortID(t *testing.T) {
	assert.Equal(t, "T10555", Category{ID: "https://openalex.org/T10555"}.ShortID())
	assert.Equal(t, "", Category{}.ShortID())
}
