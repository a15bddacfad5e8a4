// Package collection computes the filtered, ordered view of a movie collection.
//
// Apply is a pure function: it never mutates its input, never fails, and is
// re-run by its callers whenever the collection or the criteria change.
package collection

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Clark-Hu/movie-diary/internal/domain"
)

// SortKey selects the ordering applied after filtering.
type SortKey string

const (
	SortRatingDesc SortKey = "rating-desc"
	SortRatingAsc  SortKey = "rating-asc"
	SortYearDesc   SortKey = "year-desc"
	SortYearAsc    SortKey = "year-asc"
	SortTitleAsc   SortKey = "title-asc"
	SortTitleDesc  SortKey = "title-desc"

	DefaultSort = SortRatingDesc
)

var sortAliases = map[string]SortKey{
	"rating": SortRatingDesc,
	"year":   SortYearDesc,
	"title":  SortTitleAsc,
}

// ParseSortKey resolves a sort key or one of its short aliases.
func ParseSortKey(raw string) (SortKey, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch key := SortKey(raw); key {
	case SortRatingDesc, SortRatingAsc, SortYearDesc, SortYearAsc, SortTitleAsc, SortTitleDesc:
		return key, true
	}
	if key, ok := sortAliases[raw]; ok {
		return key, true
	}
	return "", false
}

// Criteria holds the optional filters and the sort key. Nil bounds are unbounded.
type Criteria struct {
	SearchTerm string
	MinRating  *float64
	MaxRating  *float64
	MinYear    *int
	MaxYear    *int
	SortBy     SortKey

	// Locale drives title collation; the zero tag means English.
	Locale language.Tag
}

// IsZero reports whether no filter is active.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.SearchTerm) == "" &&
		c.MinRating == nil && c.MaxRating == nil &&
		c.MinYear == nil && c.MaxYear == nil
}

// RawCriteria is the text form of Criteria as typed into a form or query string.
type RawCriteria struct {
	SearchTerm string
	MinRating  string
	MaxRating  string
	MinYear    string
	MaxYear    string
	SortBy     string
}

// Parse converts text inputs. Malformed numbers are dropped rather than read as zero.
func (r RawCriteria) Parse() Criteria {
	c := Criteria{
		SearchTerm: r.SearchTerm,
		MinRating:  parseFloat(r.MinRating),
		MaxRating:  parseFloat(r.MaxRating),
		MinYear:    parseInt(r.MinYear),
		MaxYear:    parseInt(r.MaxYear),
		SortBy:     DefaultSort,
	}
	if key, ok := ParseSortKey(r.SortBy); ok {
		c.SortBy = key
	}
	return c
}

// ParseCriteria reads criteria from query parameters q, min_rating, max_rating, min_year, max_year and sort.
func ParseCriteria(query url.Values) Criteria {
	return RawCriteria{
		SearchTerm: query.Get("q"),
		MinRating:  query.Get("min_rating"),
		MaxRating:  query.Get("max_rating"),
		MinYear:    query.Get("min_year"),
		MaxYear:    query.Get("max_year"),
		SortBy:     query.Get("sort"),
	}.Parse()
}

func parseFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

type predicate func(domain.Movie) bool

// Apply returns the movies matching c, ordered by c.SortBy. Equal keys keep input order.
func Apply(movies []domain.Movie, c Criteria) []domain.Movie {
	out := make([]domain.Movie, len(movies))
	copy(out, movies)

	for _, keep := range predicates(c) {
		out = filter(out, keep)
	}

	sort.SliceStable(out, less(out, c))
	return out
}

func predicates(c Criteria) []predicate {
	var ps []predicate
	if term := strings.ToLower(c.SearchTerm); term != "" {
		ps = append(ps, func(m domain.Movie) bool {
			return strings.Contains(strings.ToLower(m.Title), term)
		})
	}
	if c.MinRating != nil {
		lo := *c.MinRating
		ps = append(ps, func(m domain.Movie) bool { return m.Rating != nil && *m.Rating >= lo })
	}
	if c.MaxRating != nil {
		hi := *c.MaxRating
		ps = append(ps, func(m domain.Movie) bool { return m.Rating != nil && *m.Rating <= hi })
	}
	if c.MinYear != nil {
		lo := *c.MinYear
		ps = append(ps, func(m domain.Movie) bool { return m.Year != nil && *m.Year >= lo })
	}
	if c.MaxYear != nil {
		hi := *c.MaxYear
		ps = append(ps, func(m domain.Movie) bool { return m.Year != nil && *m.Year <= hi })
	}
	return ps
}

func filter(movies []domain.Movie, keep predicate) []domain.Movie {
	out := movies[:0]
	for _, m := range movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func less(movies []domain.Movie, c Criteria) func(i, j int) bool {
	switch c.SortBy {
	case SortRatingAsc:
		return func(i, j int) bool { return movies[i].RatingOrZero() < movies[j].RatingOrZero() }
	case SortYearDesc:
		return func(i, j int) bool { return movies[i].YearOrZero() > movies[j].YearOrZero() }
	case SortYearAsc:
		return func(i, j int) bool { return movies[i].YearOrZero() < movies[j].YearOrZero() }
	case SortTitleAsc, SortTitleDesc:
		col := collator(c.Locale)
		sign := 1
		if c.SortBy == SortTitleDesc {
			sign = -1
		}
		return func(i, j int) bool {
			return sign*col.CompareString(movies[i].Title, movies[j].Title) < 0
		}
	default:
		return func(i, j int) bool { return movies[i].RatingOrZero() > movies[j].RatingOrZero() }
	}
}

// collator is built per call; collate.Collator is not safe for concurrent use.
func collator(tag language.Tag) *collate.Collator {
	if tag == language.Und {
		tag = language.English
	}
	return collate.New(tag)
}
