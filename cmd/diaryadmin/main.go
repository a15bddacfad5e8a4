// Command diaryadmin runs maintenance tasks against the diary database.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/Clark-Hu/movie-diary/db"
	"github.com/Clark-Hu/movie-diary/internal/repository"
	"github.com/Clark-Hu/movie-diary/internal/store"
)

const (
	dbURLFlag    = "db-url"
	usernameFlag = "username"
)

func main() {
	app := cli.NewApp()
	app.Name = "diaryadmin"
	app.Usage = "movie diary maintenance"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   dbURLFlag,
			Usage:  "postgres connection url",
			EnvVar: "DB_URL",
		},
	}
	app.Commands = []cli.Command{
		makeMigrateCMD(),
		makeAssignMoviesCMD(),
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openStore(c *cli.Context) (*store.Store, error) {
	url := c.GlobalString(dbURLFlag)
	if url == "" {
		return nil, errors.New("--db-url or DB_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := store.New(ctx, url, store.Options{MaxConns: 2, Logger: log.StandardLogger()})
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	return st, nil
}

func makeMigrateCMD() cli.Command {
	return cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Applies pending database migrations",
		Action: func(c *cli.Context) error {
			st, err := openStore(c)
			if err != nil {
				return err
			}
			defer st.Close()
			applied, err := st.Migrate(context.Background(), db.Migrations)
			if err != nil {
				return errors.Wrap(err, "migrate")
			}
			if len(applied) == 0 {
				fmt.Fprintln(c.App.Writer, "No migrations to apply.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(c.App.Writer, "Applied %s\n", v)
			}
			return nil
		},
	}
}

func makeAssignMoviesCMD() cli.Command {
	return cli.Command{
		Name:  "assign-movies",
		Usage: "Assigns every movie without an owner to a user",
		Flags: []cli.Flag{
			cli.StringFlag{Name: usernameFlag, Usage: "user receiving the movies"},
		},
		Action: assignMovies,
	}
}

func assignMovies(c *cli.Context) error {
	username := strings.TrimSpace(c.String(usernameFlag))
	if username == "" {
		return cli.NewExitError("--username is required", 2)
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	repo := repository.New(st)
	return assign(ctx, repo, c.App.Writer, username)
}
