package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMoviePatchUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		ratingSet bool
		rating    *float64
		reviewSet bool
		reviewNil bool
		wantErr   bool
	}{
		{name: "omitted", body: `{}`},
		{name: "number", body: `{"rating":7.5}`, ratingSet: true, rating: ptr(7.5)},
		{name: "numeric string", body: `{"rating":"8"}`, ratingSet: true, rating: ptr(8)},
		{name: "empty string clears", body: `{"rating":""}`, ratingSet: true},
		{name: "null clears", body: `{"rating":null,"review":null}`, ratingSet: true, reviewSet: true, reviewNil: true},
		{name: "blank review clears", body: `{"review":"  "}`, reviewSet: true, reviewNil: true},
		{name: "review set", body: `{"review":"great"}`, reviewSet: true},
		{name: "garbage rating", body: `{"rating":"abc"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p MoviePatch
			err := json.Unmarshal([]byte(tt.body), &p)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.body)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p.Rating.Set != tt.ratingSet {
				t.Fatalf("Rating.Set = %v, want %v", p.Rating.Set, tt.ratingSet)
			}
			if (p.Rating.Value == nil) != (tt.rating == nil) {
				t.Fatalf("Rating.Value = %v, want %v", p.Rating.Value, tt.rating)
			}
			if tt.rating != nil && *p.Rating.Value != *tt.rating {
				t.Fatalf("Rating.Value = %v, want %v", *p.Rating.Value, *tt.rating)
			}
			if p.Review.Set != tt.reviewSet {
				t.Fatalf("Review.Set = %v, want %v", p.Review.Set, tt.reviewSet)
			}
			if tt.reviewSet && tt.reviewNil && p.Review.Value != nil {
				t.Fatalf("Review.Value = %q, want cleared", *p.Review.Value)
			}
		})
	}
}

func TestMoviePatchMarshalOmitsUnset(t *testing.T) {
	p := MoviePatch{Rating: ClearFloat()}
	payload, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"rating":null}` {
		t.Fatalf("payload = %s", payload)
	}
}

func TestMoviePatchValidate(t *testing.T) {
	if errs := (MoviePatch{Rating: SetFloat(10)}).Validate(); len(errs) != 0 {
		t.Fatalf("10 should be valid: %v", errs)
	}
	if errs := (MoviePatch{Rating: SetFloat(10.1)}).Validate(); len(errs) != 1 {
		t.Fatalf("10.1 should be rejected")
	}
	long := SetString(strings.Repeat("x", MaxReviewLength+1))
	if errs := (MoviePatch{Review: long}).Validate(); len(errs) != 1 || errs[0].Field != "review" {
		t.Fatalf("long review should be rejected: %v", errs)
	}
}

func TestMovieInputNormalizeAndValidate(t *testing.T) {
	zero := 0
	in := MovieInput{Title: "  Heat ", Year: &zero}.Normalize()
	if in.Title != "Heat" || in.Year != nil {
		t.Fatalf("normalize = %+v", in)
	}
	if errs := (MovieInput{}).Validate(); len(errs) != 1 || errs[0].Field != "title" {
		t.Fatalf("blank title should be rejected: %v", errs)
	}
}

func TestRoundRating(t *testing.T) {
	if got := RoundRating(7.45); got != 7.5 && got != 7.4 {
		t.Fatalf("RoundRating(7.45) = %v", got)
	}
	if got := RoundRating(3.75); got != 3.8 {
		t.Fatalf("RoundRating(3.75) = %v, want 3.8", got)
	}
}

func ptr(v float64) *float64 { return &v }
