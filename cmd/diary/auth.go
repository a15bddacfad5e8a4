package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/Clark-Hu/movie-diary/internal/apierror"
	"github.com/Clark-Hu/movie-diary/internal/domain"
)

const (
	usernameFlag = "username"
	emailFlag    = "email"
	passwordFlag = "password"
)

var stdin = bufio.NewReader(os.Stdin)

func prompt(out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	line, err := stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrapf(err, "read %s", strings.ToLower(label))
	}
	return strings.TrimSpace(line), nil
}

func valueOrPrompt(c *cli.Context, flag, label string) (string, error) {
	if v := c.String(flag); v != "" {
		return v, nil
	}
	return prompt(c.App.Writer, label)
}

func credentialFlags(withEmail bool) []cli.Flag {
	flags := []cli.Flag{
		cli.StringFlag{Name: usernameFlag + ", u", Usage: "account name"},
		cli.StringFlag{Name: passwordFlag + ", p", Usage: "account password", EnvVar: "DIARY_PASSWORD"},
	}
	if withEmail {
		flags = append(flags, cli.StringFlag{Name: emailFlag, Usage: "contact email"})
	}
	return flags
}

func makeRegisterCMD() cli.Command {
	return cli.Command{
		Name:   "register",
		Usage:  "Creates an account and logs in",
		Flags:  credentialFlags(true),
		Action: register,
	}
}

func register(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	var reg domain.Registration
	if reg.Username, err = valueOrPrompt(c, usernameFlag, "Username"); err != nil {
		return err
	}
	reg.Email = c.String(emailFlag)
	if reg.Password, err = valueOrPrompt(c, passwordFlag, "Password"); err != nil {
		return err
	}
	reg.Password2 = reg.Password
	if c.String(passwordFlag) == "" {
		if reg.Password2, err = prompt(c.App.Writer, "Confirm password"); err != nil {
			return err
		}
	}

	tokens, err := s.api.Register(context.Background(), reg)
	if err != nil {
		return errors.New(apierror.Describe(err, "Registration failed. Please try again."))
	}
	return finishLogin(c, s, tokens)
}

func makeLoginCMD() cli.Command {
	return cli.Command{
		Name:   "login",
		Usage:  "Logs in and stores the tokens",
		Flags:  credentialFlags(false),
		Action: login,
	}
}

func login(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	username, err := valueOrPrompt(c, usernameFlag, "Username")
	if err != nil {
		return err
	}
	password, err := valueOrPrompt(c, passwordFlag, "Password")
	if err != nil {
		return err
	}
	tokens, err := s.api.Login(context.Background(), username, password)
	if err != nil {
		return errors.New(apierror.Describe(err, "Login failed. Please try again."))
	}
	return finishLogin(c, s, tokens)
}

func finishLogin(c *cli.Context, s *session, tokens domain.AuthTokens) error {
	if err := s.tokens.Save(Tokens{Username: tokens.User.Username, Access: tokens.Access, Refresh: tokens.Refresh}); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, color.GreenString(tokens.Message))
	return nil
}

func makeLogoutCMD() cli.Command {
	return cli.Command{
		Name:  "logout",
		Usage: "Forgets the stored tokens",
		Action: func(c *cli.Context) error {
			tf := &tokenFile{path: c.GlobalString(tokenFileFlag)}
			if err := tf.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "Logged out.")
			return nil
		},
	}
}

func makeWhoamiCMD() cli.Command {
	return cli.Command{
		Name:  "whoami",
		Usage: "Prints the logged in user",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			ctx := context.Background()
			var user domain.User
			err = s.authed(ctx, func() (err error) {
				user, err = s.api.CurrentUser(ctx)
				return err
			})
			if err != nil {
				return errors.New(apierror.Describe(err, err.Error()))
			}
			fmt.Fprintf(c.App.Writer, "%s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
}
