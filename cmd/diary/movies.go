package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/text/language"

	"github.com/Clark-Hu/movie-diary/internal/acquisition"
	"github.com/Clark-Hu/movie-diary/internal/apierror"
	"github.com/Clark-Hu/movie-diary/internal/collection"
	"github.com/Clark-Hu/movie-diary/internal/domain"
	diarysession "github.com/Clark-Hu/movie-diary/internal/session"
)

const (
	searchFlag    = "search"
	minRatingFlag = "min-rating"
	maxRatingFlag = "max-rating"
	minYearFlag   = "min-year"
	maxYearFlag   = "max-year"
	sortFlag      = "sort"
	localeFlag    = "locale"
	pickFlag      = "pick"
	ratingFlag    = "rating"
	reviewFlag    = "review"
)

func makeListCMD() cli.Command {
	return cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Lists the movies in your diary",
		Flags: []cli.Flag{
			cli.StringFlag{Name: searchFlag + ", q", Usage: "title contains"},
			cli.StringFlag{Name: minRatingFlag, Usage: "lowest rating to show"},
			cli.StringFlag{Name: maxRatingFlag, Usage: "highest rating to show"},
			cli.StringFlag{Name: minYearFlag, Usage: "earliest release year"},
			cli.StringFlag{Name: maxYearFlag, Usage: "latest release year"},
			cli.StringFlag{Name: sortFlag + ", s", Usage: "rating-desc, rating-asc, year-desc, year-asc, title-asc or title-desc", Value: string(collection.DefaultSort)},
			cli.StringFlag{Name: localeFlag, Usage: "language tag used to order titles", Value: "en", EnvVar: "DIARY_LOCALE"},
		},
		Action: list,
	}
}

func list(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	tag, err := language.Parse(c.String(localeFlag))
	if err != nil {
		return errors.Wrapf(err, "invalid locale %q", c.String(localeFlag))
	}
	criteria := collection.RawCriteria{
		SearchTerm: c.String(searchFlag),
		MinRating:  c.String(minRatingFlag),
		MaxRating:  c.String(maxRatingFlag),
		MinYear:    c.String(minYearFlag),
		MaxYear:    c.String(maxYearFlag),
		SortBy:     c.String(sortFlag),
	}.Parse()
	criteria.Locale = tag

	diary := diarysession.New(s.api)
	diary.SetCriteria(criteria)
	ctx := context.Background()
	if err := s.authed(ctx, func() error { return diary.Load(ctx) }); err != nil {
		return errors.New(apierror.Describe(err, diarysession.MsgLoadFailed))
	}
	printView(c.App.Writer, diary.View())
	return nil
}

func makeAddCMD() cli.Command {
	return cli.Command{
		Name:      "add",
		Usage:     "Searches TMDB and adds the chosen movie",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			cli.IntFlag{Name: pickFlag, Usage: "take the Nth search result without asking"},
			cli.StringFlag{Name: ratingFlag + ", r", Usage: "rating from 0 to 10 to record right away"},
			cli.StringFlag{Name: reviewFlag, Usage: "short review to record right away"},
		},
		Action: add,
	}
}

func add(c *cli.Context) error {
	title := strings.TrimSpace(strings.Join(c.Args(), " "))
	if title == "" {
		return cli.NewExitError("usage: diary add <title>", 2)
	}
	patch, err := patchFromFlags(c)
	if err != nil {
		return err
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}

	ctx := context.Background()
	wf := acquisition.New(s.api, s.api, log.StandardLogger())
	var candidates []domain.Candidate
	err = s.authed(ctx, func() (err error) {
		candidates, err = wf.Search(ctx, title)
		return err
	})
	if err != nil {
		return errors.New(acquisition.UserMessage(err))
	}
	if len(candidates) == 0 {
		fmt.Fprintln(c.App.Writer, wf.Snapshot().Message)
		return nil
	}

	pick := c.Int(pickFlag)
	if pick == 0 {
		printCandidates(c.App.Writer, candidates)
		answer, err := prompt(c.App.Writer, fmt.Sprintf("Select a movie [1-%d]", len(candidates)))
		if err != nil {
			return err
		}
		if pick, err = strconv.Atoi(answer); err != nil {
			return errors.Errorf("%q is not a number", answer)
		}
	}
	if pick < 1 || pick > len(candidates) {
		return errors.Errorf("pick must be between 1 and %d", len(candidates))
	}

	movie, err := wf.SelectCandidate(ctx, candidates[pick-1].ExternalID)
	if err != nil {
		return errors.New(acquisition.UserMessage(err))
	}
	if !patch.Empty() {
		if movie, err = s.api.Update(ctx, movie.ID, patch); err != nil {
			return errors.New(apierror.Describe(err, diarysession.MsgUpdateFailed))
		}
	}
	printMovie(c.App.Writer, movie)
	return nil
}

func makeEditCMD() cli.Command {
	return cli.Command{
		Name:      "edit",
		Usage:     "Changes the rating or review of a movie",
		ArgsUsage: "<id or ranking>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: ratingFlag + ", r", Usage: "rating from 0 to 10; empty clears it"},
			cli.StringFlag{Name: reviewFlag, Usage: "short review; empty clears it"},
		},
		Action: edit,
	}
}

func edit(c *cli.Context) error {
	patch, err := patchFromFlags(c)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return cli.NewExitError("nothing to change: pass --rating or --review", 2)
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}

	ctx := context.Background()
	diary := diarysession.New(s.api)
	var movie domain.Movie
	err = s.authed(ctx, func() error {
		id, err := resolveMovie(ctx, diary, c.Args().First())
		if err != nil {
			return err
		}
		movie, err = diary.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return describe(err, diarysession.MsgUpdateFailed)
	}
	printMovie(c.App.Writer, movie)
	return nil
}

func makeRemoveCMD() cli.Command {
	return cli.Command{
		Name:      "rm",
		Aliases:   []string{"remove"},
		Usage:     "Removes a movie from your diary",
		ArgsUsage: "<id or ranking>",
		Action:    remove,
	}
}

func remove(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	diary := diarysession.New(s.api)
	err = s.authed(ctx, func() error {
		id, err := resolveMovie(ctx, diary, c.Args().First())
		if err != nil {
			return err
		}
		return diary.Remove(ctx, id)
	})
	if err != nil {
		return describe(err, diarysession.MsgDeleteFailed)
	}
	fmt.Fprintln(c.App.Writer, "Removed.")
	return nil
}

// patchFromFlags builds a patch from the flags that were passed; an empty --rating clears the rating.
func patchFromFlags(c *cli.Context) (domain.MoviePatch, error) {
	var patch domain.MoviePatch
	if c.IsSet(ratingFlag) {
		r, err := domain.ParseOptionalFloat(c.String(ratingFlag))
		if err != nil {
			return patch, errors.Errorf("rating %q is not a number", c.String(ratingFlag))
		}
		patch.Rating = r
	}
	if c.IsSet(reviewFlag) {
		patch.Review = domain.SetString(c.String(reviewFlag))
	}
	if errs := patch.Validate(); len(errs) > 0 {
		return patch, errors.New(errs[0].Message)
	}
	return patch, nil
}

// resolveMovie accepts a movie id or a ranking as shown by `diary list`.
func resolveMovie(ctx context.Context, diary *diarysession.Session, arg string) (string, error) {
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "#")
	if arg == "" {
		return "", cli.NewExitError("missing movie id or ranking", 2)
	}
	if _, err := uuid.Parse(arg); err == nil {
		return arg, nil
	}
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return "", cli.NewExitError(fmt.Sprintf("%q is neither a movie id nor a ranking", arg), 2)
	}
	if err := diary.Load(ctx); err != nil {
		return "", err
	}
	for _, m := range diary.View().Movies {
		if m.Ranking != nil && *m.Ranking == pos {
			return m.ID, nil
		}
	}
	return "", cli.NewExitError(fmt.Sprintf("no movie ranked %d", pos), 1)
}

// describe keeps usage errors raised locally and derives service errors from their payload.
func describe(err error, fallback string) error {
	var exit *cli.ExitError
	if errors.As(err, &exit) {
		return exit
	}
	return errors.New(apierror.Describe(err, fallback))
}
