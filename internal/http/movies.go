package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/movie-diary/internal/collection"
	"github.com/Clark-Hu/movie-diary/internal/domain"
	"github.com/Clark-Hu/movie-diary/internal/repository"
	"github.com/Clark-Hu/movie-diary/internal/tmdb"
)

const (
	msgDuplicateTitle = "Movie with this title already exists."
	msgNoTitle        = "Please provide a movie title"
	msgNoMovieID      = "Please provide a movie ID"
	msgBadMovieID     = "Invalid movie ID"
	msgAlreadyAdded   = "You have already added this movie"
	msgNotOnCatalog   = "Movie not found on TMDB"
)

var filterParams = []string{"q", "min_rating", "max_rating", "min_year", "max_year", "sort"}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	movies, err := s.repo.Movies.ListRanked(r.Context(), userID)
	if err != nil {
		s.logger.WithError(err).WithField("user", userID).Error("list movies failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	query := r.URL.Query()
	if hasFilter(query) {
		criteria := collection.ParseCriteria(query)
		criteria.Locale = s.cfg.CollationLocale
		movies = collection.Apply(movies, criteria)
	}
	s.respondJSON(w, http.StatusOK, movies)
}

func hasFilter(query url.Values) bool {
	for _, key := range filterParams {
		if _, ok := query[key]; ok {
			return true
		}
	}
	return false
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var in domain.MovieInput
	if err := decodeJSONBody(w, r, &in); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	in = in.Normalize()
	if errs := in.Validate(); len(errs) > 0 {
		s.respondFields(w, errs)
		return
	}

	userID := currentUser(r)
	movie, err := s.repo.Movies.Create(r.Context(), userID, in)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.respondFields(w, []domain.FieldError{{Field: "title", Message: msgDuplicateTitle}})
			return
		}
		s.logger.WithError(err).WithField("title", in.Title).Error("create movie failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/movies/%s/", movie.ID))
	s.respondJSON(w, http.StatusCreated, movie)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := s.repo.Movies.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondRepoError(w, err, "get movie failed")
		return
	}
	s.respondJSON(w, http.StatusOK, movie)
}

// handleUpdateMovie serves PUT and PATCH alike: only rating and review are writable, and omitted fields keep their value.
func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	var patch domain.MoviePatch
	if err := decodeLenientBody(w, r, &patch); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if errs := patch.Validate(); len(errs) > 0 {
		s.respondFields(w, errs)
		return
	}

	userID, id := currentUser(r), chi.URLParam(r, "id")
	var (
		movie domain.Movie
		err   error
	)
	if patch.Empty() {
		movie, err = s.repo.Movies.Get(r.Context(), userID, id)
	} else {
		movie, err = s.repo.Movies.Update(r.Context(), userID, id, patch)
	}
	if err != nil {
		s.respondRepoError(w, err, "update movie failed")
		return
	}
	s.respondJSON(w, http.StatusOK, movie)
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Movies.Delete(r.Context(), currentUser(r), chi.URLParam(r, "id")); err != nil {
		s.respondRepoError(w, err, "delete movie failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchCatalog(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		s.respondError(w, http.StatusBadRequest, msgNoTitle)
		return
	}

	ctx, cancel := s.catalogContext(r.Context())
	defer cancel()
	candidates, err := s.catalog.Search(ctx, title)
	if err != nil {
		s.logger.WithError(err).WithField("title", title).Warn("catalog search failed")
		s.respondError(w, http.StatusInternalServerError, "Error fetching data from TMDB: %v", err)
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	s.respondJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleFetchCatalogDetails(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("id"))
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, msgNoMovieID)
		return
	}
	externalID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || externalID <= 0 {
		s.respondError(w, http.StatusBadRequest, msgBadMovieID)
		return
	}

	ctx, cancel := s.catalogContext(r.Context())
	defer cancel()
	details, err := s.catalog.Details(ctx, externalID)
	if err != nil {
		if errors.Is(err, tmdb.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, msgNotOnCatalog)
			return
		}
		s.logger.WithError(err).WithField("external_id", externalID).Warn("catalog details failed")
		s.respondError(w, http.StatusInternalServerError, "Error fetching movie details: %v", err)
		return
	}

	exists, err := s.repo.Movies.ExistsByTitle(r.Context(), currentUser(r), details.Title)
	if err != nil {
		s.logger.WithError(err).Error("duplicate check failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if exists {
		s.respondError(w, http.StatusBadRequest, msgAlreadyAdded)
		return
	}
	s.respondJSON(w, http.StatusOK, details)
}

func (s *Server) catalogContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.cfg.TMDBTimeoutSecs) * time.Second
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func (s *Server) respondRepoError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	s.logger.WithFields(logrus.Fields{"error": err}).Error(msg)
	s.respondError(w, http.StatusInternalServerError, msgServerError)
}
