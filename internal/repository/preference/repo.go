// Package preference matches remembered user preferences by embedding similarity.
package preference

import (
	"context"
	"database/sql"
	"fmt"

	dompref "github.com/kailas-cloud/shopassist/internal/domain/preference"
	"github.com/kailas-cloud/shopassist/internal/repository/vectorstore"
)

// Querier is the subset of *sql.DB used by the repository.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Repo calls match_user_preferences.
type Repo struct {
	db Querier
}

// New creates a preference repository.
func New(db Querier) *Repo {
	return &Repo{db: db}
}

// Match returns up to topK preferences of userID above minSimilarity.
func (r *Repo) Match(
	ctx context.Context, userID string, vec []float32, topK int, minSimilarity float64,
) ([]dompref.Preference, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entity_name, polarity, confidence, similarity
		FROM match_user_preferences($1, $2::vector, $3, $4)`,
		userID, vectorstore.VectorLiteral(vec), topK, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("match_user_preferences: %w", err)
	}
	defer rows.Close()

	var out []dompref.Preference
	for rows.Next() {
		var p dompref.Preference
		var polarity string
		if err := rows.Scan(&p.EntityName, &polarity, &p.Confidence, &p.Similarity); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		p.Polarity = dompref.Polarity(polarity)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return out, nil
}
