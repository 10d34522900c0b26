// Package database provides typed access functions over the Supabase
// PostgREST interface, one file per entity family.
package database

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/backlot-app/backlot/internal/supabase"
)

// Sentinel errors for callers that need to branch on failure class.
var (
	ErrNotFound      = stderrors.New("not found")
	ErrInvalidInput  = stderrors.New("invalid input")
	ErrDatabaseError = stderrors.New("database error")
)

// IsNotFound reports whether err indicates a missing row.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err indicates rejected input.
func IsInvalidInput(err error) bool {
	return stderrors.Is(err, ErrInvalidInput)
}

// Repository is the base data-access handle shared by all entity families.
type Repository struct {
	client *supabase.Client
}

// NewRepository wraps a Supabase client.
func NewRepository(client *supabase.Client) *Repository {
	return &Repository{client: client}
}

// Request issues one PostgREST request. Query is a pre-encoded filter
// expression such as "id=eq.X&limit=1".
func (r *Repository) Request(ctx context.Context, method, table string, body any, query string) ([]byte, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("%w: repository not initialized", ErrInvalidInput)
	}
	data, err := r.client.Rest(ctx, method, table, body, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrDatabaseError, method, table, err)
	}
	return data, nil
}

// decodeRows unmarshals a PostgREST array response.
func decodeRows[T any](data []byte, table string) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: unmarshal %s: %v", ErrDatabaseError, table, err)
	}
	return rows, nil
}

// decodeOne unmarshals an array response expected to hold exactly one row.
func decodeOne[T any](data []byte, table string) (*T, error) {
	rows, err := decodeRows[T](data, table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return &rows[0], nil
}

// ValidateID checks that id is a well-formed UUID before it is interpolated
// into a filter expression.
func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, field)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s must be a valid UUID", ErrInvalidInput, field)
	}
	return nil
}

// ValidateEnum checks that value is one of allowed.
func ValidateEnum(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of %s", ErrInvalidInput, field, strings.Join(allowed, ", "))
}

// inList renders ids as a PostgREST in.(...) filter value.
func inList(ids []string) string {
	return "in.(" + strings.Join(ids, ",") + ")"
}

// uuidSet renders ids as a PostgREST array literal for cs./cd. operators.
func uuidSet(ids []string) string {
	return "{" + strings.Join(ids, ",") + "}"
}
