// Package session holds a client's in-memory copy of its movie collection and
// the filtered view derived from it.
package session

import (
	"context"
	"sync"

	"github.com/Clark-Hu/movie-diary/internal/collection"
	"github.com/Clark-Hu/movie-diary/internal/domain"
)

// Fallback messages for failed mutations.
const (
	MsgLoadFailed   = "Failed to load movies. Please try again."
	MsgDeleteFailed = "Failed to delete movie. Please try again."
	MsgUpdateFailed = "Failed to update movie. Please try again."
)

// Store is the service side of the collection.
type Store interface {
	List(ctx context.Context) ([]domain.Movie, error)
	Update(ctx context.Context, id string, patch domain.MoviePatch) (domain.Movie, error)
	Delete(ctx context.Context, id string) error
}

// View is the filtered and ordered collection as last computed.
type View struct {
	Movies   []domain.Movie
	Criteria collection.Criteria
	Total    int
}

// Showing returns the number of movies passing the criteria.
func (v View) Showing() int { return len(v.Movies) }

// Listener receives every recomputed view.
type Listener func(View)

// Session is safe for concurrent use. Listeners run after the lock is released,
// in subscription order.
type Session struct {
	store Store

	mu        sync.Mutex
	movies    []domain.Movie
	criteria  collection.Criteria
	view      View
	listeners map[int]Listener
	order     []int
	nextID    int
}

// New returns an empty session with default criteria.
func New(store Store) *Session {
	s := &Session{
		store:     store,
		criteria:  collection.Criteria{SortBy: collection.DefaultSort},
		listeners: make(map[int]Listener),
	}
	s.view = View{Criteria: s.criteria, Movies: []domain.Movie{}}
	return s
}

// Load replaces the local collection with the service's.
func (s *Session) Load(ctx context.Context) error {
	movies, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	s.mutate(func() { s.movies = append([]domain.Movie(nil), movies...) })
	return nil
}

// SetCriteria changes the active criteria and recomputes the view.
func (s *Session) SetCriteria(c collection.Criteria) {
	s.mutate(func() { s.criteria = c })
}

// Criteria returns the active criteria.
func (s *Session) Criteria() collection.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// View returns the last computed view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Counts returns how many movies are shown and how many are held.
func (s *Session) Counts() (showing, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.view.Movies), s.view.Total
}

// Movie returns the locally held record with the given id.
func (s *Session) Movie(id string) (domain.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.movies[i], true
	}
	return domain.Movie{}, false
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Add appends a record created elsewhere, such as by the acquisition workflow.
func (s *Session) Add(m domain.Movie) {
	s.mutate(func() {
		if i := s.indexOf(m.ID); i >= 0 {
			s.movies[i] = m
			return
		}
		s.movies = append(s.movies, m)
	})
}

// Remove deletes the record on the service and, once confirmed, locally.
// On failure the local collection is unchanged.
func (s *Session) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.mutate(func() {
		if i := s.indexOf(id); i >= 0 {
			s.movies = append(s.movies[:i:i], s.movies[i+1:]...)
		}
	})
	return nil
}

// Update applies patch on the service and replaces the local record with the result.
func (s *Session) Update(ctx context.Context, id string, patch domain.MoviePatch) (domain.Movie, error) {
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return domain.Movie{}, err
	}
	s.mutate(func() {
		if i := s.indexOf(id); i >= 0 {
			s.movies[i] = updated
		}
	})
	return updated, nil
}

func (s *Session) indexOf(id string) int {
	for i := range s.movies {
		if s.movies[i].ID == id {
			return i
		}
	}
	return -1
}

// mutate runs change under the lock, recomputes the view and notifies listeners.
func (s *Session) mutate(change func()) {
	s.mu.Lock()
	change()
	s.view = View{
		Movies:   collection.Apply(s.movies, s.criteria),
		Criteria: s.criteria,
		Total:    len(s.movies),
	}
	view := s.view
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(view)
	}
}
