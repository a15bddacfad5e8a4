package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/Clark-Hu/movie-diary/internal/repository"
)

func assign(ctx context.Context, repo *repository.Repository, out io.Writer, username string) error {
	user, err := repo.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		fmt.Fprintln(out, color.RedString("User with username %q does not exist.", username))
		names, err := repo.Users.Usernames(ctx)
		if err != nil {
			return errors.Wrap(err, "list users")
		}
		fmt.Fprintf(out, "Available users: %s\n", strings.Join(names, ", "))
		return cli.NewExitError("", 1)
	}
	if err != nil {
		return errors.Wrap(err, "load user")
	}
	fmt.Fprintf(out, "Found user: %s\n", user.Username)

	count, err := repo.Movies.AssignOrphans(ctx, user.ID)
	if err != nil {
		return errors.Wrap(err, "assign movies")
	}
	fmt.Fprintln(out, color.GreenString("Successfully assigned %d movies to user: %s", count, user.Username))
	return nil
}
