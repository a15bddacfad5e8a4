package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/Clark-Hu/movie-diary/internal/pgtest"
	"github.com/Clark-Hu/movie-diary/internal/repository"
)

func TestAssign(t *testing.T) {
	color.NoColor = true
	st := pgtest.Start(t, "diaryadmin_test")
	repo := repository.New(st)
	ctx := context.Background()

	for _, name := range []string{"zoe", "ana"} {
		if _, err := repo.Users.Create(ctx, name, "", "hash"); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	for _, title := range []string{"Metropolis", "Nosferatu", "M"} {
		if _, err := st.Pool().Exec(ctx, `INSERT INTO movies (title) VALUES ($1)`, title); err != nil {
			t.Fatalf("insert orphan: %v", err)
		}
	}

	var out bytes.Buffer
	if err := assign(ctx, repo, &out, "nobody"); err == nil {
		t.Fatalf("expected error for unknown user")
	}
	if got := out.String(); !strings.Contains(got, `User with username "nobody" does not exist.`) || !strings.Contains(got, "Available users: ana, zoe") {
		t.Fatalf("unknown user output:\n%s", got)
	}

	out.Reset()
	if err := assign(ctx, repo, &out, "ana"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "Found user: ana") || !strings.Contains(got, "Successfully assigned 3 movies to user: ana") {
		t.Fatalf("assign output:\n%s", got)
	}

	out.Reset()
	if err := assign(ctx, repo, &out, "ana"); err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if !strings.Contains(out.String(), "Successfully assigned 0 movies") {
		t.Fatalf("second assign output:\n%s", out.String())
	}
}
