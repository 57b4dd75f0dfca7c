package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// ListTeams loads every team with its aliases. The identity resolver caches
// the result, so this runs once per process, not per lookup.
func (s *PostgresStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM teams ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	index := make(map[string]int)
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		index[t.ID] = len(teams)
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	aliasRows, err := s.db.QueryContext(ctx, `SELECT team_id, alias FROM team_aliases`)
	if err != nil {
		return nil, fmt.Errorf("list team aliases: %w", err)
	}
	defer aliasRows.Close()
	for aliasRows.Next() {
		var teamID, alias string
		if err := aliasRows.Scan(&teamID, &alias); err != nil {
			return nil, fmt.Errorf("scan team alias: %w", err)
		}
		if i, ok := index[teamID]; ok {
			teams[i].Aliases = append(teams[i].Aliases, alias)
		}
	}
	if err := aliasRows.Err(); err != nil {
		return nil, fmt.Errorf("list team aliases: %w", err)
	}
	return teams, nil
}

// CreateTeam inserts a team and its initial aliases.
func (s *PostgresStore) CreateTeam(ctx context.Context, name string, aliases []string) (models.Team, error) {
	team := models.Team{ID: uuid.NewString(), Name: name, Aliases: aliases}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Team{}, fmt.Errorf("begin create team: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO teams (id, name) VALUES ($1, $2)`, team.ID, team.Name); err != nil {
		return models.Team{}, fmt.Errorf("insert team %q: %w", name, err)
	}
	for _, alias := range aliases {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_aliases (team_id, alias) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			team.ID, alias); err != nil {
			return models.Team{}, fmt.Errorf("insert alias %q: %w", alias, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Team{}, fmt.Errorf("commit create team: %w", err)
	}
	return team, nil
}

// AddAlias attaches one more alias to a team. Idempotent.
func (s *PostgresStore) AddAlias(ctx context.Context, teamID, alias string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_aliases (team_id, alias) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		teamID, alias)
	if err != nil {
		return fmt.Errorf("add alias %q to %s: %w", alias, teamID, err)
	}
	return nil
}
