package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-diary/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
// Every query is scoped to the owning user.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id::text,
    title,
    year,
    description,
    rating::float8,
    ranking,
    review,
    img_url,
    created_at,
    updated_at
`

// rankingOrder orders a collection by rating with unrated movies last, oldest first among ties.
const rankingOrder = `rating DESC NULLS LAST, created_at ASC, id ASC`

// ListByUser returns the user's movies in ranking order.
func (r *MoviesRepository) ListByUser(ctx context.Context, userID string) ([]domain.Movie, error) {
	if !validID(userID) {
		return []domain.Movie{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE user_id = $1 ORDER BY %s`, movieColumns, rankingOrder)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateRankings writes 1-based positions in ranking order, touching only rows whose ranking changed.
func (r *MoviesRepository) UpdateRankings(ctx context.Context, userID string) (int64, error) {
	if !validID(userID) {
		return 0, nil
	}
	query := fmt.Sprintf(`
        WITH ranked AS (
            SELECT id, ROW_NUMBER() OVER (ORDER BY %s)::int AS pos
            FROM movies
            WHERE user_id = $1
        )
        UPDATE movies m
        SET ranking = ranked.pos
        FROM ranked
        WHERE m.id = ranked.id AND m.ranking IS DISTINCT FROM ranked.pos
    `, rankingOrder)
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListRanked refreshes rankings and returns the collection in ranking order.
func (r *MoviesRepository) ListRanked(ctx context.Context, userID string) ([]domain.Movie, error) {
	if _, err := r.UpdateRankings(ctx, userID); err != nil {
		return nil, fmt.Errorf("update rankings: %w", err)
	}
	return r.ListByUser(ctx, userID)
}

// Get fetches one of the user's movies.
func (r *MoviesRepository) Get(ctx context.Context, userID, id string) (domain.Movie, error) {
	if !validID(userID) || !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1 AND user_id = $2`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return domain.Movie{}, translate(err)
	}
	return movie, nil
}

// Create inserts a movie for the user. A title already in the collection yields ErrDuplicate.
func (r *MoviesRepository) Create(ctx context.Context, userID string, in domain.MovieInput) (domain.Movie, error) {
	if !validID(userID) {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        INSERT INTO movies (user_id, title, year, description, img_url)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query, userID, in.Title, in.Year, in.Description, in.ImageURL)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, translate(err)
	}
	return movie, nil
}

// Update applies a partial update: unset fields keep their value, set-to-nil fields are cleared.
func (r *MoviesRepository) Update(ctx context.Context, userID, id string, patch domain.MoviePatch) (domain.Movie, error) {
	if !validID(userID) || !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	var rating *float64
	if patch.Rating.Set && patch.Rating.Value != nil {
		v := domain.RoundRating(*patch.Rating.Value)
		rating = &v
	}

	query := fmt.Sprintf(`
        UPDATE movies
        SET rating = CASE WHEN $3::bool THEN $4::numeric ELSE rating END,
            review = CASE WHEN $5::bool THEN $6::varchar ELSE review END,
            updated_at = now()
        WHERE id = $1 AND user_id = $2
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query, id, userID, patch.Rating.Set, rating, patch.Review.Set, patch.Review.Value)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, translate(err)
	}
	return movie, nil
}

// Delete removes one of the user's movies.
func (r *MoviesRepository) Delete(ctx context.Context, userID, id string) error {
	if !validID(userID) || !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByTitle reports whether the user already holds a movie with exactly this title.
func (r *MoviesRepository) ExistsByTitle(ctx context.Context, userID, title string) (bool, error) {
	if !validID(userID) {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE user_id = $1 AND title = $2)`, userID, title).Scan(&exists)
	return exists, err
}

// AssignOrphans gives every movie without an owner to userID and returns how many moved.
func (r *MoviesRepository) AssignOrphans(ctx context.Context, userID string) (int64, error) {
	if !validID(userID) {
		return 0, ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE movies SET user_id = $1, updated_at = now() WHERE user_id IS NULL`, userID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Year,
		&movie.Description,
		&movie.Rating,
		&movie.Ranking,
		&movie.Review,
		&movie.ImageURL,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}
