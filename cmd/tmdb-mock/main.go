// Command tmdb-mock serves a small TMDB-compatible catalog from a JSON file for local development.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type movieEntry struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate *string `json:"release_date"`
	Overview    *string `json:"overview"`
	PosterPath  *string `json:"poster_path"`
}

type statusMessage struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "cmd/tmdb-mock/movies.json", "path to mock data file")
		apiKey  = flag.String("api-key", "", "reject requests whose api_key differs; empty accepts any")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	logger := logrus.New()

	file, err := os.ReadFile(*data)
	if err != nil {
		logger.WithError(err).Fatal("read mock data")
	}
	var entries []movieEntry
	if err := json.Unmarshal(file, &entries); err != nil {
		logger.WithError(err).Fatal("parse mock data")
	}
	byID := make(map[int64]movieEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	r := chi.NewRouter()
	if *logReqs {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if *apiKey != "" && req.URL.Query().Get("api_key") != *apiKey {
				writeJSON(w, http.StatusUnauthorized, statusMessage{StatusCode: 7, StatusMessage: "Invalid API key: You must be granted a valid key."})
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/3/search/movie", func(w http.ResponseWriter, req *http.Request) {
		query := strings.ToLower(strings.TrimSpace(req.URL.Query().Get("query")))
		results := make([]movieEntry, 0)
		if query != "" {
			for _, e := range entries {
				if strings.Contains(strings.ToLower(e.Title), query) {
					results = append(results, e)
				}
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"page":          1,
			"results":       results,
			"total_results": len(results),
			"total_pages":   1,
		})
	})

	r.Get("/3/movie/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		entry, ok := byID[id]
		if err != nil || !ok {
			writeJSON(w, http.StatusNotFound, statusMessage{StatusCode: 34, StatusMessage: "The resource you requested could not be found."})
			return
		}
		writeJSON(w, http.StatusOK, entry)
	})

	addr := ":" + *port
	logger.WithFields(logrus.Fields{"addr": addr, "entries": len(entries)}).Info("mock tmdb listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
