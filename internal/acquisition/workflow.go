// Package acquisition turns a catalog search into a record in the user's collection.
//
// A Workflow moves through Idle → Searching → ResultsShown → Selecting → Created,
// with Error reachable from Searching and Selecting. Selection runs its steps in
// order (fetch details, then persist) and at most one selection may be pending.
package acquisition

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/movie-diary/internal/apierror"
	"github.com/Clark-Hu/movie-diary/internal/domain"
)

// User-facing messages.
const (
	MsgNoResults    = "No movies found. Try a different search."
	MsgSearchFailed = "Failed to search movies. Please try again."
	MsgSelectFailed = "Failed to add movie. Please try again."
	MsgInvalidData  = "Invalid movie data received from TMDB"
)

// ErrUnknownCandidate may be returned by a Catalog when the external id does not exist.
var ErrUnknownCandidate = errors.New("acquisition: unknown candidate")

// Catalog is the external movie database.
type Catalog interface {
	SearchCatalog(ctx context.Context, query string) ([]domain.Candidate, error)
	FetchCatalogDetails(ctx context.Context, externalID int64) (domain.CatalogDetails, error)
}

// Collection persists new records.
type Collection interface {
	Create(ctx context.Context, in domain.MovieInput) (domain.Movie, error)
}

// State is the workflow's position.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateResultsShown
	StateSelecting
	StateCreated
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateResultsShown:
		return "results"
	case StateSelecting:
		return "selecting"
	case StateCreated:
		return "created"
	case StateError:
		return "error"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Snapshot is a consistent copy of the workflow's observable state.
type Snapshot struct {
	State      State
	Candidates []domain.Candidate
	// Message is the notice or error text to display; empty when there is nothing to show.
	Message   string
	Selecting int64
	CreatedID string
}

// Workflow drives one acquisition session. It is safe for concurrent use.
type Workflow struct {
	catalog    Catalog
	collection Collection
	logger     logrus.FieldLogger

	// selecting is the single selection permit.
	selecting atomic.Bool

	mu         sync.Mutex
	state      State
	candidates []domain.Candidate
	message    string
	selectID   int64
	createdID  string
}

// New constructs a Workflow. A nil logger discards step logs.
func New(catalog Catalog, collection Collection, logger logrus.FieldLogger) *Workflow {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Workflow{
		catalog:    catalog,
		collection: collection,
		logger:     logger,
	}
}

// Snapshot returns the current observable state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	candidates := make([]domain.Candidate, len(w.candidates))
	copy(candidates, w.candidates)
	return Snapshot{
		State:      w.state,
		Candidates: candidates,
		Message:    w.message,
		Selecting:  w.selectID,
		CreatedID:  w.createdID,
	}
}

// Search queries the catalog. A blank title is ignored. An empty result is not an
// error; the snapshot carries MsgNoResults instead.
func (w *Workflow) Search(ctx context.Context, title string) ([]domain.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}

	w.mu.Lock()
	w.state = StateSearching
	w.message = ""
	w.mu.Unlock()

	candidates, err := w.catalog.SearchCatalog(ctx, title)
	if err != nil {
		msg := apierror.Describe(err, MsgSearchFailed)
		w.logger.WithError(err).WithField("query", title).Warn("acquisition: catalog search failed")
		w.fail(msg)
		return nil, &TransportError{Step: StepSearch, Message: msg, Err: err}
	}

	w.mu.Lock()
	w.state = StateResultsShown
	w.candidates = candidates
	if len(candidates) == 0 {
		w.message = MsgNoResults
	}
	w.mu.Unlock()

	w.logger.WithFields(logrus.Fields{"query": title, "results": len(candidates)}).Debug("acquisition: search finished")
	return candidates, nil
}

// SelectCandidate fetches the candidate's details and adds it to the collection.
// The returned record's ID is what the caller hands to the edit step.
// While a selection is pending every other call fails with ErrSelectionInFlight.
func (w *Workflow) SelectCandidate(ctx context.Context, externalID int64) (domain.Movie, error) {
	if !w.selecting.CompareAndSwap(false, true) {
		return domain.Movie{}, ErrSelectionInFlight
	}
	defer w.selecting.Store(false)

	w.mu.Lock()
	w.state = StateSelecting
	w.selectID = externalID
	w.message = ""
	w.mu.Unlock()

	log := w.logger.WithField("external_id", externalID)

	log.Debug("acquisition: fetching details")
	details, err := w.catalog.FetchCatalogDetails(ctx, externalID)
	if err != nil {
		return domain.Movie{}, w.failSelect(log, w.classifyFetch(externalID, err))
	}
	if strings.TrimSpace(details.Title) == "" {
		return domain.Movie{}, w.failSelect(log, &ExternalFetchError{ExternalID: strconv.FormatInt(externalID, 10), Message: MsgInvalidData})
	}

	log.WithField("title", details.Title).Debug("acquisition: creating movie")
	movie, err := w.collection.Create(ctx, details.Input())
	if err != nil {
		return domain.Movie{}, w.failSelect(log, &PersistenceError{Message: apierror.Describe(err, MsgSelectFailed), Err: err})
	}

	w.mu.Lock()
	w.state = StateCreated
	w.createdID = movie.ID
	w.candidates = nil
	w.selectID = 0
	w.mu.Unlock()

	log.WithField("movie_id", movie.ID).Info("acquisition: movie added")
	return movie, nil
}

func (w *Workflow) classifyFetch(externalID int64, err error) error {
	id := strconv.FormatInt(externalID, 10)
	if p := apierror.FromError(err); p != nil {
		return &ExternalFetchError{ExternalID: id, Message: p.Message(MsgSelectFailed), Err: err}
	}
	if errors.Is(err, ErrUnknownCandidate) {
		return &ExternalFetchError{ExternalID: id, Message: MsgSelectFailed, Err: err}
	}
	return &TransportError{Step: StepFetch, Message: MsgSelectFailed, Err: err}
}

func (w *Workflow) failSelect(log logrus.FieldLogger, err error) error {
	log.WithError(err).Warn("acquisition: selection failed")
	w.mu.Lock()
	w.selectID = 0
	w.mu.Unlock()
	w.fail(UserMessage(err))
	return err
}

func (w *Workflow) fail(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateError
	w.message = msg
}
