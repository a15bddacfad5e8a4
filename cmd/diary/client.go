package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/Clark-Hu/movie-diary/internal/apiclient"
)

const (
	apiURLFlag    = "api-url"
	tokenFileFlag = "token-file"
	timeoutFlag   = "timeout"
	debugFlag     = "debug"
)

func registerClientFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   apiURLFlag,
			Usage:  "movie diary service url",
			Value:  "http://localhost:8000",
			EnvVar: "DIARY_API_URL",
		},
		cli.StringFlag{
			Name:   tokenFileFlag,
			Usage:  "where login tokens are kept",
			Value:  defaultTokenFile(),
			EnvVar: "DIARY_TOKEN_FILE",
		},
		cli.DurationFlag{
			Name:   timeoutFlag,
			Usage:  "request timeout",
			Value:  15 * time.Second,
			EnvVar: "DIARY_TIMEOUT",
		},
		cli.BoolFlag{
			Name:   debugFlag,
			Usage:  "log requests",
			EnvVar: "DIARY_DEBUG",
		},
	)
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".diary-token.json"
	}
	return filepath.Join(dir, "movie-diary", "token.json")
}

// session bundles the API client with the token file it was loaded from.
type session struct {
	api    *apiclient.Client
	tokens *tokenFile
	saved  Tokens
}

func newSession(c *cli.Context) (*session, error) {
	tf := &tokenFile{path: c.GlobalString(tokenFileFlag)}
	saved, err := tf.Load()
	if err != nil {
		return nil, err
	}
	api, err := apiclient.New(c.GlobalString(apiURLFlag),
		apiclient.WithHTTPClient(&http.Client{Timeout: c.GlobalDuration(timeoutFlag)}),
		apiclient.WithLogger(log.StandardLogger()),
		apiclient.WithToken(saved.Access),
	)
	if err != nil {
		return nil, err
	}
	return &session{api: api, tokens: tf, saved: saved}, nil
}

func (s *session) requireLogin() error {
	if s.saved.Access == "" && s.saved.Refresh == "" {
		return errors.New("not logged in; run `diary login` first")
	}
	return nil
}

// authed runs fn and, when the access token was rejected, refreshes it once and retries.
func (s *session) authed(ctx context.Context, fn func() error) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	err := fn()
	if !apiclient.IsStatus(err, http.StatusUnauthorized) || s.saved.Refresh == "" {
		return err
	}
	log.Debug("access token rejected, refreshing")
	access, rerr := s.api.Refresh(ctx, s.saved.Refresh)
	if rerr != nil {
		return errors.New("session expired; run `diary login` again")
	}
	s.saved.Access = access
	if err := s.tokens.Save(s.saved); err != nil {
		return err
	}
	return fn()
}
