package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Athlete struct {
	AthleteID    int64
	Name         string
	RefreshToken string
	Email        string
}

// UpsertAthlete inserts an athlete or updates the name, token and email of an existing one.
func (db *DB) UpsertAthlete(ctx context.Context, a Athlete) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO strava.athletes (athlete_id, athlete_name, refresh_token, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (athlete_id) DO UPDATE SET
			athlete_name = EXCLUDED.athlete_name,
			refresh_token = EXCLUDED.refresh_token,
			email = EXCLUDED.email
	`, a.AthleteID, a.Name, a.RefreshToken, a.Email)
	if err != nil {
		return fmt.Errorf("failed to upsert athlete %d: %w", a.AthleteID, err)
	}
	return nil
}

func (db *DB) GetAthlete(ctx context.Context, athleteID int64) (*Athlete, error) {
	var a Athlete
	err := db.pool.QueryRow(ctx, `
		SELECT athlete_id, athlete_name, refresh_token, email
		FROM strava.athletes
		WHERE athlete_id = $1
	`, athleteID).Scan(&a.AthleteID, &a.Name, &a.RefreshToken, &a.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get athlete %d: %w", athleteID, err)
	}
	return &a, nil
}

func (db *DB) ListAthletes(ctx context.Context) ([]Athlete, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT athlete_id, athlete_name, refresh_token, email
		FROM strava.athletes
		ORDER BY athlete_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list athletes: %w", err)
	}
	athletes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Athlete, error) {
		var a Athlete
		err := row.Scan(&a.AthleteID, &a.Name, &a.RefreshToken, &a.Email)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan athletes: %w", err)
	}
	return athletes, nil
}

// DeleteAthlete removes an athlete and, by cascade, their activities.
func (db *DB) DeleteAthlete(ctx context.Context, athleteID int64) error {
	ct, err := db.pool.Exec(ctx, `DELETE FROM strava.athletes WHERE athlete_id = $1`, athleteID)
	if err != nil {
		return fmt.Errorf("failed to delete athlete %d: %w", athleteID, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
