package httpserver

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/export"
)

// Query limits for GET /books.
const (
	maxSubjects      = 20
	maxSubjectLength = 200
)

// Sort values accepted by GET /books.
const (
	sortNone     = "none"
	sortYearDesc = "year_desc"
)

// booksQuery holds the parsed GET /books parameters.
type booksQuery struct {
	Subjects       []string `query:"subjects" validate:"min=1,max=20,dive,max=200"`
	StartYear      int      `query:"start_year" validate:"gte=1000,lte=2100"`
	EndYear        int      `query:"end_year" validate:"gte=1000,lte=2100,gtefield=StartYear"`
	MaxResults     int      `query:"max_results" validate:"gte=1"`
	Mailto         string   `query:"mailto" validate:"omitempty,email"`
	OpenAccessOnly bool     `query:"oa_only"`
	Format         string   `query:"format" validate:"oneof=json csv"`
	Sort           string   `query:"sort" validate:"omitempty,oneof=none year_desc"`
}

var queryValidator = newQueryValidator()

func newQueryValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report query parameter names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseBooksQuery reads and validates the query string. Omitted parameters
// take their values from defaults.
func parseBooksQuery(values url.Values, defaults QueryDefaults) (*booksQuery, error) {
	raw, ok := values["subjects"]
	if !ok {
		return nil, domain.NewValidationError("subjects", "is required")
	}

	q := &booksQuery{
		Subjects:   domain.SplitSubjects(strings.Join(raw, ",")),
		StartYear:  defaults.StartYear,
		EndYear:    defaults.EndYear,
		MaxResults: defaults.MaxResults,
		Mailto:     strings.TrimSpace(values.Get("mailto")),
		Format:     strings.ToLower(strings.TrimSpace(values.Get("format"))),
		Sort:       strings.ToLower(strings.TrimSpace(values.Get("sort"))),
	}
	if q.Format == "" {
		q.Format = string(export.FormatJSON)
	}

	var err error
	if q.StartYear, err = intParam(values, "start_year", q.StartYear); err != nil {
		return nil, err
	}
	if q.EndYear, err = intParam(values, "end_year", q.EndYear); err != nil {
		return nil, err
	}
	if q.MaxResults, err = intParam(values, "max_results", q.MaxResults); err != nil {
		return nil, err
	}
	if q.OpenAccessOnly, err = boolParam(values, "oa_only"); err != nil {
		return nil, err
	}

	if err := queryValidator.Struct(q); err != nil {
		return nil, translateValidationError(err)
	}
	if defaults.MaxResultsLimit > 0 && q.MaxResults > defaults.MaxResultsLimit {
		return nil, domain.NewValidationError("max_results", fmt.Sprintf("must be at most %d", defaults.MaxResultsLimit))
	}

	return q, nil
}

// SearchRequest converts the query into a service request.
func (q *booksQuery) SearchRequest() domain.SearchRequest {
	req := domain.SearchRequest{
		Subjects:       q.Subjects,
		Years:          domain.YearRange{Start: q.StartYear, End: q.EndYear},
		MaxResults:     q.MaxResults,
		Mailto:         q.Mailto,
		OpenAccessOnly: q.OpenAccessOnly,
	}
	switch q.Sort {
	case sortYearDesc:
		on := true
		req.SortByYear = &on
	case sortNone:
		off := false
		req.SortByYear = &off
	}
	return req
}

func intParam(values url.Values, name string, fallback int) (int, error) {
	s := strings.TrimSpace(values.Get(name))
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func boolParam(values url.Values, name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(values.Get(name))) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, domain.NewValidationError(name, "must be a boolean")
	}
}

// translateValidationError turns the first validator failure into a
// domain.ValidationError with a readable message.
func translateValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("query", err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "min":
		if field == "subjects" {
			msg = "must contain at least one non-empty subject"
		} else {
			msg = "must be at least " + fe.Param()
		}
	case "max":
		if field == "subjects" {
			msg = fmt.Sprintf("must contain at most %d subjects", maxSubjects)
		} else {
			msg = fmt.Sprintf("must be at most %d characters", maxSubjectLength)
		}
	case "gte":
		msg = "must be >= " + fe.Param()
	case "lte":
		msg = "must be <= " + fe.Param()
	case "gtefield":
		msg = "must be >= start_year"
	case "email":
		msg = "must be a valid email address"
	case "oneof":
		msg = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		msg = "failed " + fe.Tag() + " validation"
	}
	return domain.NewValidationError(field, msg)
}
