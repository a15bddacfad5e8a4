package domain

import (
	"strings"
	"time"
)

const (
	// MaxTitleLength bounds Movie.Title.
	MaxTitleLength = 250
	// MaxDescriptionLength bounds Movie.Description.
	MaxDescriptionLength = 1000
	// MaxReviewLength bounds Movie.Review.
	MaxReviewLength = 250
)

// Movie represents a single entry of a user's collection.
type Movie struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Year        *int      `json:"year"`
	Description string    `json:"description"`
	ImageURL    string    `json:"img_url"`
	Rating      *float64  `json:"rating"`
	Ranking     *int      `json:"ranking"`
	Review      *string   `json:"review"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RatingOrZero returns the rating used for ordering; unrated movies compare as 0.
func (m Movie) RatingOrZero() float64 {
	if m.Rating == nil {
		return 0
	}
	return *m.Rating
}

// YearOrZero returns the year used for ordering; movies without a year compare as 0.
func (m Movie) YearOrZero() int {
	if m.Year == nil {
		return 0
	}
	return *m.Year
}

// MovieInput carries the fields accepted when a movie is added to a collection.
type MovieInput struct {
	Title       string `json:"title"`
	Year        *int   `json:"year"`
	Description string `json:"description"`
	ImageURL    string `json:"img_url"`
}

// Normalize trims text fields and drops a non-positive year.
func (in MovieInput) Normalize() MovieInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Year != nil && *in.Year <= 0 {
		in.Year = nil
	}
	return in
}

// Validate reports field errors keyed by wire field name, in a stable order.
func (in MovieInput) Validate() []FieldError {
	var errs []FieldError
	switch {
	case in.Title == "":
		errs = append(errs, FieldError{Field: "title", Message: "This field may not be blank."})
	case len([]rune(in.Title)) > MaxTitleLength:
		errs = append(errs, FieldError{Field: "title", Message: "Ensure this field has no more than 250 characters."})
	}
	if len([]rune(in.Description)) > MaxDescriptionLength {
		errs = append(errs, FieldError{Field: "description", Message: "Ensure this field has no more than 1000 characters."})
	}
	return errs
}

// FieldError is a validation failure attached to one input field.
type FieldError struct {
	Field   string
	Message string
}

// MoviePatch is a partial update of the user-editable fields. Fields whose Set
// flag is false are left untouched; a set field with a nil value is cleared.
type MoviePatch struct {
	Rating OptionalFloat  `json:"rating"`
	Review OptionalString `json:"review"`
}

// Validate checks value ranges of the set fields.
func (p MoviePatch) Validate() []FieldError {
	var errs []FieldError
	if p.Rating.Set && p.Rating.Value != nil && !ValidRating(*p.Rating.Value) {
		errs = append(errs, FieldError{Field: "rating", Message: "Rating must be between 0 and 10."})
	}
	if p.Review.Set && p.Review.Value != nil && len([]rune(*p.Review.Value)) > MaxReviewLength {
		errs = append(errs, FieldError{Field: "review", Message: "Ensure this field has no more than 250 characters."})
	}
	return errs
}

// Empty reports whether the patch changes nothing.
func (p MoviePatch) Empty() bool {
	return !p.Rating.Set && !p.Review.Set
}

// MarshalJSON writes only the fields that are set so omitted fields stay omitted on the wire.
func (p MoviePatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, 2)
	if p.Rating.Set {
		body["rating"] = p.Rating.Value
	}
	if p.Review.Set {
		body["review"] = p.Review.Value
	}
	return marshalMap(body)
}

// Candidate is a catalog search hit that has not been added to a collection.
type Candidate struct {
	ExternalID  int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate *string `json:"release_date,omitempty"`
	Overview    *string `json:"overview,omitempty"`
	PosterPath  *string `json:"poster_path,omitempty"`
}

// CatalogDetails is the catalog's full record for a single title, shaped for MovieInput.
type CatalogDetails struct {
	Title       string `json:"title"`
	Year        *int   `json:"year"`
	Description string `json:"description"`
	ImageURL    string `json:"img_url"`
}

// Input converts fetched details into the payload used to create a movie.
func (d CatalogDetails) Input() MovieInput {
	return MovieInput{
		Title:       d.Title,
		Year:        d.Year,
		Description: d.Description,
		ImageURL:    d.ImageURL,
	}
}
