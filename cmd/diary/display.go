package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/Clark-Hu/movie-diary/internal/domain"
	diarysession "github.com/Clark-Hu/movie-diary/internal/session"
	"github.com/Clark-Hu/movie-diary/internal/tmdb"
)

const reviewWidth = 40

func printView(w io.Writer, view diarysession.View) {
	if view.Total == 0 {
		fmt.Fprintln(w, "Your diary is empty. Add a movie with `diary add <title>`.")
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = reviewWidth
	tbl.AddRow(bold("#"), bold("TITLE"), bold("YEAR"), bold("RATING"), bold("REVIEW"), bold("ID"))
	for _, m := range view.Movies {
		tbl.AddRow(ranking(m), m.Title, year(m.Year), rating(m.Rating), review(m.Review), m.ID)
	}
	fmt.Fprintln(w, tbl)
	fmt.Fprintf(w, "\nShowing %d of %d movies\n", view.Showing(), view.Total)
}

func printCandidates(w io.Writer, candidates []domain.Candidate) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	for i, c := range candidates {
		tbl.AddRow(color.CyanString("%d.", i+1), c.Title, year(tmdb.ReleaseYear(c.ReleaseDate)), overview(c.Overview))
	}
	fmt.Fprintln(w, tbl)
}

func printMovie(w io.Writer, m domain.Movie) {
	tbl := uitable.New()
	tbl.Wrap = true
	tbl.MaxColWidth = 70
	tbl.AddRow(bold("Title:"), m.Title)
	tbl.AddRow(bold("Year:"), year(m.Year))
	tbl.AddRow(bold("Rating:"), rating(m.Rating))
	tbl.AddRow(bold("Review:"), review(m.Review))
	if m.Description != "" {
		tbl.AddRow(bold("About:"), m.Description)
	}
	tbl.AddRow(bold("ID:"), m.ID)
	fmt.Fprintln(w, tbl)
}

func bold(s string) string {
	return color.New(color.Bold).Sprint(s)
}

func ranking(m domain.Movie) string {
	if m.Ranking == nil {
		return "-"
	}
	return strconv.Itoa(*m.Ranking)
}

func year(y *int) string {
	if y == nil {
		return "-"
	}
	return strconv.Itoa(*y)
}

func rating(r *float64) string {
	if r == nil {
		return "-"
	}
	text := strconv.FormatFloat(*r, 'f', 1, 64)
	switch {
	case *r >= 8:
		return color.GreenString(text)
	case *r < 5:
		return color.RedString(text)
	default:
		return color.YellowString(text)
	}
}

func review(r *string) string {
	if r == nil {
		return ""
	}
	return *r
}

func overview(o *string) string {
	if o == nil {
		return ""
	}
	return *o
}
