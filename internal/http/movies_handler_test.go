package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Clark-Hu/movie-diary/internal/domain"
	"github.com/Clark-Hu/movie-diary/internal/logging"
	"github.com/Clark-Hu/movie-diary/internal/pgtest"
	"github.com/Clark-Hu/movie-diary/internal/repository"
)

type handlerEnv struct {
	srv     *Server
	catalog *fakeCatalog
}

func newHandlerEnv(tb testing.TB) *handlerEnv {
	tb.Helper()
	st := pgtest.Start(tb, "diary_handlers_test")
	cfg := testConfig()
	year := 1979
	catalog := &fakeCatalog{details: map[int64]domain.CatalogDetails{
		348: {Title: "Alien", Year: &year, Description: "In space no one can hear you scream.", ImageURL: "https://img/alien.jpg"},
	}}
	srv := New(cfg, st, repository.New(st), catalog, testIssuer(cfg), logging.Discard())
	return &handlerEnv{srv: srv, catalog: catalog}
}

func decodeInto(tb testing.TB, rec *httptest.ResponseRecorder, dst interface{}) {
	tb.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		tb.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func (e *handlerEnv) register(tb testing.TB, username string) string {
	tb.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"password123","password2":"password123"}`, username, username)
	rec := serve(e.srv, http.MethodPost, "/api/register/", "", body)
	if rec.Code != http.StatusCreated {
		tb.Fatalf("register %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var tokens domain.AuthTokens
	decodeInto(tb, rec, &tokens)
	return "Bearer " + tokens.Access
}

func (e *handlerEnv) create(tb testing.TB, authz, title string, year int) domain.Movie {
	tb.Helper()
	rec := serve(e.srv, http.MethodPost, "/api/movies/", authz, fmt.Sprintf(`{"title":%q,"year":%d}`, title, year))
	if rec.Code != http.StatusCreated {
		tb.Fatalf("create %s: %d %s", title, rec.Code, rec.Body.String())
	}
	var movie domain.Movie
	decodeInto(tb, rec, &movie)
	return movie
}

func (e *handlerEnv) patch(tb testing.TB, authz, id, body string) *httptest.ResponseRecorder {
	tb.Helper()
	return serve(e.srv, http.MethodPatch, "/api/movies/"+id+"/", authz, body)
}

func TestAuthFlow(t *testing.T) {
	env := newHandlerEnv(t)

	var tokens domain.AuthTokens
	rec := serve(env.srv, http.MethodPost, "/api/register/", "", `{"username":"ana","email":"ana@example.com","password":"password123","password2":"password123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &tokens)
	if tokens.Message != msgAccountCreated || tokens.User.Username != "ana" || tokens.Access == "" || tokens.Refresh == "" {
		t.Fatalf("tokens = %+v", tokens)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password material: %s", rec.Body.String())
	}

	rec = serve(env.srv, http.MethodPost, "/api/register/", "", `{"username":"ana","password":"password123","password2":"password123"}`)
	if rec.Code != http.StatusBadRequest || payloadOf(t, rec).Message("") != msgUsernameTaken {
		t.Fatalf("duplicate register: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(env.srv, http.MethodPost, "/api/login/", "", `{"username":"ana"}`)
	if rec.Code != http.StatusBadRequest || payloadOf(t, rec).Error != msgMissingLogin {
		t.Fatalf("missing password: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(env.srv, http.MethodPost, "/api/login/", "", `{"username":"ana","password":"wrong-password"}`)
	if rec.Code != http.StatusUnauthorized || payloadOf(t, rec).Error != msgBadLogin {
		t.Fatalf("bad password: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(env.srv, http.MethodPost, "/api/login/", "", `{"username":"nobody","password":"password123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: %d", rec.Code)
	}

	rec = serve(env.srv, http.MethodPost, "/api/login/", "", `{"username":"ana","password":"password123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &tokens)
	if tokens.Message != "Welcome back, ana!" {
		t.Fatalf("message = %q", tokens.Message)
	}

	rec = serve(env.srv, http.MethodPost, "/api/token/refresh/", "", fmt.Sprintf(`{"refresh":%q}`, tokens.Refresh))
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	var refreshed accessResponse
	decodeInto(t, rec, &refreshed)

	rec = serve(env.srv, http.MethodGet, "/api/user/", "Bearer "+refreshed.Access, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("current user: %d %s", rec.Code, rec.Body.String())
	}
	var user domain.User
	decodeInto(t, rec, &user)
	if user.ID != tokens.User.ID {
		t.Fatalf("user = %+v", user)
	}

	rec = serve(env.srv, http.MethodPost, "/api/token/refresh/", "", fmt.Sprintf(`{"refresh":%q}`, tokens.Access))
	if rec.Code != http.StatusUnauthorized || payloadOf(t, rec).Detail != msgBadRefresh {
		t.Fatalf("access token accepted as refresh: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMovieCRUD(t *testing.T) {
	env := newHandlerEnv(t)
	ana := env.register(t, "ana")
	bob := env.register(t, "bob")

	rec := serve(env.srv, http.MethodPost, "/api/movies/", ana, `{"title":"  Heat ","year":1995,"description":"LA crime saga"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var heat domain.Movie
	decodeInto(t, rec, &heat)
	if heat.Title != "Heat" || heat.Rating != nil || heat.Review != nil {
		t.Fatalf("created = %+v", heat)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/movies/"+heat.ID+"/" {
		t.Fatalf("Location = %q", loc)
	}

	rec = serve(env.srv, http.MethodPost, "/api/movies/", ana, `{"title":"Heat"}`)
	if rec.Code != http.StatusBadRequest || payloadOf(t, rec).Message("") != msgDuplicateTitle {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.patch(t, ana, heat.ID, `{"rating":"8.46","review":"Great heist."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	var updated domain.Movie
	decodeInto(t, rec, &updated)
	if updated.Rating == nil || *updated.Rating != 8.5 || updated.Review == nil || *updated.Review != "Great heist." {
		t.Fatalf("updated = %+v", updated)
	}

	rec = env.patch(t, ana, heat.ID, `{"rating":""}`)
	decodeInto(t, rec, &updated)
	if updated.Rating != nil || updated.Review == nil {
		t.Fatalf("empty rating should clear only the rating: %+v", updated)
	}

	// Full-record PUT: read-only fields are ignored.
	rec = serve(env.srv, http.MethodPut, "/api/movies/"+heat.ID, ana, `{"id":"x","title":"Other","rating":7}`)
	decodeInto(t, rec, &updated)
	if rec.Code != http.StatusOK || updated.Title != "Heat" || updated.Rating == nil || *updated.Rating != 7 {
		t.Fatalf("put: %d %+v", rec.Code, updated)
	}

	rec = env.patch(t, ana, heat.ID, `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty patch: %d", rec.Code)
	}

	for _, target := range []string{"/api/movies/" + heat.ID + "/", "/api/movies/not-a-uuid/"} {
		if rec := serve(env.srv, http.MethodGet, target, bob, ""); rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s as bob: %d", target, rec.Code)
		}
	}
	if rec := env.patch(t, bob, heat.ID, `{"rating":1}`); rec.Code != http.StatusNotFound {
		t.Fatalf("bob patched ana's movie: %d", rec.Code)
	}
	if rec := serve(env.srv, http.MethodDelete, "/api/movies/"+heat.ID+"/", bob, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("bob deleted ana's movie: %d", rec.Code)
	}

	rec = serve(env.srv, http.MethodDelete, "/api/movies/"+heat.ID+"/", ana, "")
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("delete: %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(env.srv, http.MethodGet, "/api/movies/"+heat.ID+"/", ana, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted movie still visible: %d", rec.Code)
	}
}

func TestListMoviesRankingAndFilters(t *testing.T) {
	env := newHandlerEnv(t)
	ana := env.register(t, "ana")

	alien := env.create(t, ana, "Alien", 1979)
	brazil := env.create(t, ana, "Brazil", 1985)
	casino := env.create(t, ana, "Casino", 1995)
	env.create(t, ana, "Dune", 2021)
	env.patch(t, ana, alien.ID, `{"rating":9}`)
	env.patch(t, ana, brazil.ID, `{"rating":6.5}`)
	env.patch(t, ana, casino.ID, `{"rating":9}`)

	list := func(t *testing.T, query string) []domain.Movie {
		t.Helper()
		rec := serve(env.srv, http.MethodGet, "/api/movies/"+query, ana, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list %s: %d %s", query, rec.Code, rec.Body.String())
		}
		var movies []domain.Movie
		decodeInto(t, rec, &movies)
		return movies
	}
	titles := func(movies []domain.Movie) string {
		out := make([]string, len(movies))
		for i, m := range movies {
			out[i] = m.Title
		}
		return strings.Join(out, ",")
	}

	ranked := list(t, "")
	if got := titles(ranked); got != "Alien,Casino,Brazil,Dune" {
		t.Fatalf("ranked order = %s", got)
	}
	for i, m := range ranked {
		if m.Ranking == nil || *m.Ranking != i+1 {
			t.Fatalf("%s ranking = %v, want %d", m.Title, m.Ranking, i+1)
		}
	}

	tests := []struct {
		query string
		want  string
	}{
		{query: "?q=AL", want: "Alien"},
		{query: "?min_rating=7", want: "Alien,Casino"},
		{query: "?min_year=1980&max_year=2000", want: "Casino,Brazil"},
		{query: "?min_rating=abc", want: "Alien,Casino,Brazil,Dune"},
		{query: "?sort=title-desc", want: "Dune,Casino,Brazil,Alien"},
		{query: "?sort=year-asc", want: "Alien,Brazil,Casino,Dune"},
		{query: "?sort=rating-asc", want: "Dune,Brazil,Alien,Casino"},
		{query: "?max_rating=8", want: "Brazil"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := titles(list(t, tt.query)); got != tt.want {
				t.Fatalf("%s = %s, want %s", tt.query, got, tt.want)
			}
		})
	}

	other := env.register(t, "bob")
	rec := serve(env.srv, http.MethodGet, "/api/movies/", other, "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("bob's list = %d %s", rec.Code, rec.Body.String())
	}
}

func TestFetchCatalogDetailsHandler(t *testing.T) {
	env := newHandlerEnv(t)
	ana := env.register(t, "ana")

	rec := serve(env.srv, http.MethodGet, "/api/movies/fetch_tmdb_details/?id=348", ana, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("details: %d %s", rec.Code, rec.Body.String())
	}
	var details domain.CatalogDetails
	decodeInto(t, rec, &details)
	if details.Title != "Alien" || details.Year == nil || *details.Year != 1979 || details.ImageURL == "" {
		t.Fatalf("details = %+v", details)
	}

	rec = serve(env.srv, http.MethodPost, "/api/movies/", ana, rec.Body.String())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create from details: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(env.srv, http.MethodGet, "/api/movies/fetch_tmdb_details/?id=348", ana, "")
	if rec.Code != http.StatusBadRequest || payloadOf(t, rec).Error != msgAlreadyAdded {
		t.Fatalf("already added: %d %s", rec.Code, rec.Body.String())
	}

	bob := env.register(t, "bob")
	if rec := serve(env.srv, http.MethodGet, "/api/movies/fetch_tmdb_details/?id=348", bob, ""); rec.Code != http.StatusOK {
		t.Fatalf("another user's collection blocked the fetch: %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newHandlerEnv(t)
	rec := serve(env.srv, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}
}
