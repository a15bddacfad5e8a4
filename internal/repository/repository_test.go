package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Clark-Hu/movie-diary/internal/domain"
	"github.com/Clark-Hu/movie-diary/internal/pgtest"
)

type testEnv struct {
	ctx        context.Context
	repository *Repository
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	st := pgtest.Start(t, "diary_repository_test")
	return &testEnv{ctx: context.Background(), repository: New(st)}
}

func mustCreateUser(t testing.TB, env *testEnv, username string) domain.User {
	t.Helper()
	user, err := env.repository.Users.Create(env.ctx, username, username+"@example.com", "hash")
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return user
}

func mustCreateMovie(t testing.TB, env *testEnv, userID, title string) domain.Movie {
	t.Helper()
	year := 1999
	movie, err := env.repository.Movies.Create(env.ctx, userID, domain.MovieInput{Title: title, Year: &year, Description: "d"})
	if err != nil {
		t.Fatalf("create movie %q: %v", title, err)
	}
	return movie
}

func rate(t testing.TB, env *testEnv, userID, id string, rating float64) domain.Movie {
	t.Helper()
	movie, err := env.repository.Movies.Update(env.ctx, userID, id, domain.MoviePatch{Rating: domain.SetFloat(rating)})
	if err != nil {
		t.Fatalf("rate %s: %v", id, err)
	}
	return movie
}

func TestMoviesRepository_CreateGetDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ana := mustCreateUser(t, env, "ana")
	bob := mustCreateUser(t, env, "bob")

	movie := mustCreateMovie(t, env, ana.ID, "Alien")
	if movie.ID == "" || movie.Year == nil || *movie.Year != 1999 || movie.Rating != nil {
		t.Fatalf("unexpected movie %+v", movie)
	}

	got, err := env.repository.Movies.Get(env.ctx, ana.ID, movie.ID)
	if err != nil || got.Title != "Alien" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := env.repository.Movies.Get(env.ctx, bob.ID, movie.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's movie visible: %v", err)
	}
	if _, err := env.repository.Movies.Get(env.ctx, ana.ID, "non-existent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}

	if _, err := env.repository.Movies.Create(env.ctx, ana.ID, domain.MovieInput{Title: "Alien"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := env.repository.Movies.Create(env.ctx, bob.ID, domain.MovieInput{Title: "Alien"}); err != nil {
		t.Fatalf("same title for another user: %v", err)
	}

	exists, err := env.repository.Movies.ExistsByTitle(env.ctx, ana.ID, "Alien")
	if err != nil || !exists {
		t.Fatalf("ExistsByTitle = %v, %v", exists, err)
	}
	exists, err = env.repository.Movies.ExistsByTitle(env.ctx, ana.ID, "alien")
	if err != nil || exists {
		t.Fatalf("ExistsByTitle should be exact, got %v, %v", exists, err)
	}
}

func TestMoviesRepository_PartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	ana := mustCreateUser(t, env, "ana")
	movie := mustCreateMovie(t, env, ana.ID, "Heat")

	review := "Great heist."
	updated, err := env.repository.Movies.Update(env.ctx, ana.ID, movie.ID, domain.MoviePatch{
		Rating: domain.SetFloat(8.46),
		Review: domain.SetString(review),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Rating == nil || *updated.Rating != 8.5 {
		t.Fatalf("rating = %v, want 8.5", updated.Rating)
	}
	if updated.Review == nil || *updated.Review != review {
		t.Fatalf("review = %v", updated.Review)
	}

	// Review only: rating untouched.
	updated, err = env.repository.Movies.Update(env.ctx, ana.ID, movie.ID, domain.MoviePatch{Review: domain.SetString("Rewatched.")})
	if err != nil {
		t.Fatalf("Update review: %v", err)
	}
	if updated.Rating == nil || *updated.Rating != 8.5 || *updated.Review != "Rewatched." {
		t.Fatalf("unexpected record %+v", updated)
	}

	// Clear rating.
	updated, err = env.repository.Movies.Update(env.ctx, ana.ID, movie.ID, domain.MoviePatch{Rating: domain.ClearFloat()})
	if err != nil {
		t.Fatalf("Update clear: %v", err)
	}
	if updated.Rating != nil || updated.Review == nil {
		t.Fatalf("unexpected record after clear %+v", updated)
	}

	bob := mustCreateUser(t, env, "bob")
	if _, err := env.repository.Movies.Update(env.ctx, bob.ID, movie.ID, domain.MoviePatch{Rating: domain.SetFloat(1)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating another user's movie, got %v", err)
	}
}

func TestMoviesRepository_ListRanked(t *testing.T) {
	env := newTestEnv(t)
	ana := mustCreateUser(t, env, "ana")

	a := mustCreateMovie(t, env, ana.ID, "A")
	b := mustCreateMovie(t, env, ana.ID, "B")
	c := mustCreateMovie(t, env, ana.ID, "C")
	d := mustCreateMovie(t, env, ana.ID, "D")
	rate(t, env, ana.ID, a.ID, 6)
	rate(t, env, ana.ID, c.ID, 9)
	rate(t, env, ana.ID, d.ID, 6)

	movies, err := env.repository.Movies.ListRanked(env.ctx, ana.ID)
	if err != nil {
		t.Fatalf("ListRanked: %v", err)
	}
	want := []string{c.ID, a.ID, d.ID, b.ID}
	for i, m := range movies {
		if m.ID != want[i] {
			t.Fatalf("position %d = %s (%s), want %s", i, m.Title, m.ID, want[i])
		}
		if m.Ranking == nil || *m.Ranking != i+1 {
			t.Fatalf("ranking of %s = %v, want %d", m.Title, m.Ranking, i+1)
		}
	}

	changed, err := env.repository.Movies.UpdateRankings(env.ctx, ana.ID)
	if err != nil {
		t.Fatalf("UpdateRankings: %v", err)
	}
	if changed != 0 {
		t.Fatalf("stable rankings rewrote %d rows", changed)
	}
}

func TestMoviesRepository_Delete(t *testing.T) {
	env := newTestEnv(t)
	ana := mustCreateUser(t, env, "ana")
	movie := mustCreateMovie(t, env, ana.ID, "Up")

	if err := env.repository.Movies.Delete(env.ctx, ana.ID, movie.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := env.repository.Movies.Delete(env.ctx, ana.ID, movie.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
	movies, err := env.repository.Movies.ListByUser(env.ctx, ana.ID)
	if err != nil || len(movies) != 0 {
		t.Fatalf("ListByUser = %v, %v", movies, err)
	}
}

func TestMoviesRepository_AssignOrphans(t *testing.T) {
	env := newTestEnv(t)
	ana := mustCreateUser(t, env, "ana")
	pool := env.repository.Movies.pool

	for _, title := range []string{"Orphan 1", "Orphan 2"} {
		if _, err := pool.Exec(env.ctx, `INSERT INTO movies (title) VALUES ($1)`, title); err != nil {
			t.Fatalf("insert orphan: %v", err)
		}
	}

	count, err := env.repository.Movies.AssignOrphans(env.ctx, ana.ID)
	if err != nil {
		t.Fatalf("AssignOrphans: %v", err)
	}
	if count != 2 {
		t.Fatalf("assigned %d, want 2", count)
	}
	movies, err := env.repository.Movies.ListByUser(env.ctx, ana.ID)
	if err != nil || len(movies) != 2 {
		t.Fatalf("ListByUser = %d movies, %v", len(movies), err)
	}
}

func TestUsersRepository(t *testing.T) {
	env := newTestEnv(t)
	ana := mustCreateUser(t, env, "ana")
	mustCreateUser(t, env, "Zed")
	mustCreateUser(t, env, "bob")

	if _, err := env.repository.Users.Create(env.ctx, "ana", "", "x"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := env.repository.Users.GetByUsername(env.ctx, "ana")
	if err != nil || got.ID != ana.ID || got.PasswordHash != "hash" {
		t.Fatalf("GetByUsername = %+v, %v", got, err)
	}
	if _, err := env.repository.Users.GetByUsername(env.ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got, err := env.repository.Users.GetByID(env.ctx, ana.ID); err != nil || got.Username != "ana" {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}

	names, err := env.repository.Users.Usernames(env.ctx)
	if err != nil {
		t.Fatalf("Usernames: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("Usernames = %v", names)
	}
}

func TestMoviesRepository_ConcurrentCreatesSameTitle(t *testing.T) {
	env := newTestEnv(t)
	ana := mustCreateUser(t, env, "ana")

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		dupes   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.repository.Movies.Create(env.ctx, ana.ID, domain.MovieInput{Title: "Speed"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrDuplicate):
				dupes++
			default:
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || dupes != workers-1 {
		t.Fatalf("created=%d dupes=%d", created, dupes)
	}
}

func BenchmarkMoviesRepositoryCreate(b *testing.B) {
	env := newTestEnv(b)
	user := mustCreateUser(b, env, "bench")

	for i := 0; i < b.N; i++ {
		title := fmt.Sprintf("Bench Movie %d", i)
		if _, err := env.repository.Movies.Create(env.ctx, user.ID, domain.MovieInput{Title: title}); err != nil {
			b.Fatalf("create movie: %v", err)
		}
	}
}
