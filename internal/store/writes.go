package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/flagonhq/flagon/internal/toggle"
)

// The write path backs the administrative tooling. Each successful write
// publishes the matching mutation event so cached decisions get evicted.

// UpsertFlag inserts or updates a flag definition.
func (s *PostgresStore) UpsertFlag(ctx context.Context, f *toggle.Flag) error {
	if err := toggle.ValidatePercent(f.Percent); err != nil {
		return err
	}

	query := `
		INSERT INTO flags (name, everyone, testing, superusers, staff,
		                   authenticated, languages, percent, rollout)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9)
		ON CONFLICT (name) DO UPDATE SET
			everyone = EXCLUDED.everyone,
			testing = EXCLUDED.testing,
			superusers = EXCLUDED.superusers,
			staff = EXCLUDED.staff,
			authenticated = EXCLUDED.authenticated,
			languages = EXCLUDED.languages,
			percent = EXCLUDED.percent,
			rollout = EXCLUDED.rollout,
			updated_at = now()
		RETURNING (xmax = 0), created_at, updated_at
	`

	var inserted bool
	err := s.db.QueryRow(ctx, query,
		f.Name,
		triStatePtr(f.Everyone),
		f.Testing,
		f.Superusers,
		f.Staff,
		f.Authenticated,
		strings.Join(f.Languages, ","),
		f.Percent.String(),
		f.Rollout,
	).Scan(&inserted, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert flag %q: %w", f.Name, err)
	}

	s.notifier.Publish(MutationEvent{
		Kind:   toggle.KindFlag,
		Name:   f.Name,
		Change: changeFor(inserted),
		Phase:  PhasePost,
	})
	return nil
}

// DeleteFlag removes a flag definition. Deleting an absent flag is a no-op
// and publishes nothing.
func (s *PostgresStore) DeleteFlag(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM flags WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete flag %q: %w", name, err)
	}
	if tag.RowsAffected() > 0 {
		s.notifier.Publish(MutationEvent{
			Kind:   toggle.KindFlag,
			Name:   name,
			Change: ChangeDeleted,
			Phase:  PhasePost,
		})
	}
	return nil
}

// AddFlagUser attaches a user identity to a flag.
func (s *PostgresStore) AddFlagUser(ctx context.Context, name, userID string) error {
	return s.changeMembership(ctx, name,
		`INSERT INTO flag_users (flag_name, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		name, userID)
}

// RemoveFlagUser detaches a user identity from a flag.
func (s *PostgresStore) RemoveFlagUser(ctx context.Context, name, userID string) error {
	return s.changeMembership(ctx, name,
		`DELETE FROM flag_users WHERE flag_name = $1 AND user_id = $2`,
		name, userID)
}

// AddFlagGroup attaches a group identity to a flag.
func (s *PostgresStore) AddFlagGroup(ctx context.Context, name, groupID string) error {
	return s.changeMembership(ctx, name,
		`INSERT INTO flag_groups (flag_name, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		name, groupID)
}

// RemoveFlagGroup detaches a group identity from a flag.
func (s *PostgresStore) RemoveFlagGroup(ctx context.Context, name, groupID string) error {
	return s.changeMembership(ctx, name,
		`DELETE FROM flag_groups WHERE flag_name = $1 AND group_id = $2`,
		name, groupID)
}

// changeMembership brackets a membership statement with pre and post
// notifications. Cache subscribers must act on the post event only.
func (s *PostgresStore) changeMembership(ctx context.Context, name, query string, args ...any) error {
	ev := MutationEvent{
		Kind:   toggle.KindFlag,
		Name:   name,
		Change: ChangeMembershipChanged,
		Phase:  PhasePre,
	}
	s.notifier.Publish(ev)

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to change membership for flag %q: %w", name, err)
	}

	ev.Phase = PhasePost
	s.notifier.Publish(ev)
	return nil
}

// UpsertSwitch inserts or updates a switch definition.
func (s *PostgresStore) UpsertSwitch(ctx context.Context, sw *toggle.Switch) error {
	query := `
		INSERT INTO switches (name, active)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING (xmax = 0), created_at, updated_at
	`

	var inserted bool
	err := s.db.QueryRow(ctx, query, sw.Name, sw.Active).Scan(&inserted, &sw.CreatedAt, &sw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert switch %q: %w", sw.Name, err)
	}

	s.notifier.Publish(MutationEvent{
		Kind:   toggle.KindSwitch,
		Name:   sw.Name,
		Change: changeFor(inserted),
		Phase:  PhasePost,
	})
	return nil
}

// DeleteSwitch removes a switch definition.
func (s *PostgresStore) DeleteSwitch(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM switches WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete switch %q: %w", name, err)
	}
	if tag.RowsAffected() > 0 {
		s.notifier.Publish(MutationEvent{
			Kind:   toggle.KindSwitch,
			Name:   name,
			Change: ChangeDeleted,
			Phase:  PhasePost,
		})
	}
	return nil
}

// UpsertSample inserts or updates a sample definition.
func (s *PostgresStore) UpsertSample(ctx context.Context, sm *toggle.Sample) error {
	if err := toggle.ValidatePercent(sm.Percent); err != nil {
		return err
	}

	query := `
		INSERT INTO samples (name, percent)
		VALUES ($1, $2::numeric)
		ON CONFLICT (name) DO UPDATE SET
			percent = EXCLUDED.percent,
			updated_at = now()
		RETURNING (xmax = 0), created_at, updated_at
	`

	var inserted bool
	err := s.db.QueryRow(ctx, query, sm.Name, sm.Percent.String()).Scan(&inserted, &sm.CreatedAt, &sm.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sample %q: %w", sm.Name, err)
	}

	s.notifier.Publish(MutationEvent{
		Kind:   toggle.KindSample,
		Name:   sm.Name,
		Change: changeFor(inserted),
		Phase:  PhasePost,
	})
	return nil
}

// DeleteSample removes a sample definition.
func (s *PostgresStore) DeleteSample(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM samples WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete sample %q: %w", name, err)
	}
	if tag.RowsAffected() > 0 {
		s.notifier.Publish(MutationEvent{
			Kind:   toggle.KindSample,
			Name:   name,
			Change: ChangeDeleted,
			Phase:  PhasePost,
		})
	}
	return nil
}

func changeFor(inserted bool) Change {
	if inserted {
		return ChangeCreated
	}
	return ChangeUpdated
}

func triStatePtr(t toggle.TriState) *bool {
	switch t {
	case toggle.On:
		v := true
		return &v
	case toggle.Off:
		v := false
		return &v
	default:
		return nil
	}
}
