// Package store provides the data access layer for toggle definitions. It
// handles all direct interactions with PostgreSQL using the pgx driver and
// publishes mutation events so the caching layer can evict stale entries.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flagonhq/flagon/internal/toggle"
)

// ErrNotFound marks a toggle name with no stored definition. The engine
// treats it as "use the universe default", never as a failure.
var ErrNotFound = errors.New("store: definition not found")

// Compile-time check that PostgresStore implements Repository.
var _ Repository = (*PostgresStore)(nil)

// Repository defines the read interface the evaluation engine consumes.
// Using an interface allows for dependency injection and mocking in tests.
type Repository interface {
	// GetFlag fetches a flag definition by name.
	GetFlag(ctx context.Context, name string) (*toggle.Flag, error)

	// GetSwitch fetches a switch definition by name.
	GetSwitch(ctx context.Context, name string) (*toggle.Switch, error)

	// GetSample fetches a sample definition by name.
	GetSample(ctx context.Context, name string) (*toggle.Sample, error)

	// ListFlagUsers returns the user identities attached to a flag.
	ListFlagUsers(ctx context.Context, name string) ([]string, error)

	// ListFlagGroups returns the group identities attached to a flag.
	ListFlagGroups(ctx context.Context, name string) ([]string, error)

	// ListSwitches returns every stored switch.
	ListSwitches(ctx context.Context) ([]toggle.Switch, error)
}

// PostgresStore implements Repository backed by PostgreSQL, and carries the
// administrative write path. Every write publishes a MutationEvent through
// the Notifier after it commits; membership writes additionally publish a
// pre-phase event so subscribers can tell the transaction boundaries apart.
type PostgresStore struct {
	db       *pgxpool.Pool
	notifier *Notifier
}

// NewPostgresStore creates a repository with the given pool and notifier.
func NewPostgresStore(db *pgxpool.Pool, notifier *Notifier) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	if notifier == nil {
		panic("store: notifier cannot be nil")
	}
	return &PostgresStore{db: db, notifier: notifier}
}

// Notifier exposes the mutation event bus for subscription at wiring time.
func (s *PostgresStore) Notifier() *Notifier {
	return s.notifier
}

// GetFlag fetches one flag definition.
func (s *PostgresStore) GetFlag(ctx context.Context, name string) (*toggle.Flag, error) {
	query := `
		SELECT name, everyone, testing, superusers, staff, authenticated,
		       languages, percent::text, rollout, created_at, updated_at
		FROM flags
		WHERE name = $1
	`

	var (
		f         toggle.Flag
		everyone  *bool
		languages string
		percent   string
	)

	err := s.db.QueryRow(ctx, query, name).Scan(
		&f.Name,
		&everyone,
		&f.Testing,
		&f.Superusers,
		&f.Staff,
		&f.Authenticated,
		&languages,
		&percent,
		&f.Rollout,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flag %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get flag %q: %w", name, err)
	}

	f.Everyone = triState(everyone)
	f.Languages = splitLanguages(languages)

	f.Percent, err = decimal.NewFromString(percent)
	if err != nil {
		return nil, fmt.Errorf("flag %q has malformed percent %q: %w", name, percent, err)
	}

	return &f, nil
}

// GetSwitch fetches one switch definition.
func (s *PostgresStore) GetSwitch(ctx context.Context, name string) (*toggle.Switch, error) {
	query := `
		SELECT name, active, created_at, updated_at
		FROM switches
		WHERE name = $1
	`

	var sw toggle.Switch
	err := s.db.QueryRow(ctx, query, name).Scan(&sw.Name, &sw.Active, &sw.CreatedAt, &sw.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("switch %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get switch %q: %w", name, err)
	}
	return &sw, nil
}

// GetSample fetches one sample definition.
func (s *PostgresStore) GetSample(ctx context.Context, name string) (*toggle.Sample, error) {
	query := `
		SELECT name, percent::text, created_at, updated_at
		FROM samples
		WHERE name = $1
	`

	var (
		sm      toggle.Sample
		percent string
	)
	err := s.db.QueryRow(ctx, query, name).Scan(&sm.Name, &percent, &sm.CreatedAt, &sm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sample %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sample %q: %w", name, err)
	}

	sm.Percent, err = decimal.NewFromString(percent)
	if err != nil {
		return nil, fmt.Errorf("sample %q has malformed percent %q: %w", name, percent, err)
	}

	return &sm, nil
}

// ListFlagUsers returns the user identities attached to a flag.
func (s *PostgresStore) ListFlagUsers(ctx context.Context, name string) ([]string, error) {
	return s.listMembers(ctx, "flag_users", "user_id", name)
}

// ListFlagGroups returns the group identities attached to a flag.
func (s *PostgresStore) ListFlagGroups(ctx context.Context, name string) ([]string, error) {
	return s.listMembers(ctx, "flag_groups", "group_id", name)
}

func (s *PostgresStore) listMembers(ctx context.Context, table, column, name string) ([]string, error) {
	// table and column come from the two call sites above, never from input.
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE flag_name = $1 ORDER BY %s`, column, table, column)

	rows, err := s.db.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s for flag %q: %w", table, name, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return members, nil
}

// ListSwitches returns every stored switch, ordered by name.
func (s *PostgresStore) ListSwitches(ctx context.Context) ([]toggle.Switch, error) {
	query := `
		SELECT name, active, created_at, updated_at
		FROM switches
		ORDER BY name
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list switches: %w", err)
	}
	defer rows.Close()

	var switches []toggle.Switch
	for rows.Next() {
		var sw toggle.Switch
		if err := rows.Scan(&sw.Name, &sw.Active, &sw.CreatedAt, &sw.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan switch row: %w", err)
		}
		switches = append(switches, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return switches, nil
}

func triState(b *bool) toggle.TriState {
	switch {
	case b == nil:
		return toggle.Unset
	case *b:
		return toggle.On
	default:
		return toggle.Off
	}
}

func splitLanguages(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
