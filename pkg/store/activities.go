package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const upsertBatchSize = 100

// Activity is a row of strava.activities. Pointer fields are nullable.
type Activity struct {
	ActivityID        int64
	AthleteID         int64
	Name              string
	Description       *string
	MovingTimeS       int32
	DistanceMi        float64
	AvgSpeedFtS       float64
	MaxSpeedFtS       *float64
	FullDatetime      *time.Time
	SpmAvg            *float64
	HRAvg             *float64
	WktType           *int32
	TotalElevGainFt   *float64
	Manual            bool
	Calories          *float64
	AchievementCount  *int32
	KudosCount        *int32
	CommentCount      *int32
	AthleteCount      *int32
	Rating            *int32
	AvgPower          *int32
	SleepRating       *int32
	SufferScore       *int32
	PerceivedExertion *int32
}

// Fingerprint holds the user-editable fields used to detect changed activities.
type Fingerprint struct {
	Name        string
	Description string
	WktType     *int32
}

const activityColumns = `activity_id, athlete_id, name, description, moving_time_s, distance_mi, avg_speed_ft_s,
	max_speed_ft_s, full_datetime, spm_avg, hr_avg, wkt_type, total_elev_gain_ft, manual, calories,
	achievement_count, kudos_count, comment_count, athlete_count, rating, avg_power, sleep_rating,
	suffer_score, perceived_exertion`

const upsertActivitySQL = `
	INSERT INTO strava.activities (` + activityColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	ON CONFLICT (activity_id) DO UPDATE SET
		athlete_id = EXCLUDED.athlete_id,
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		moving_time_s = EXCLUDED.moving_time_s,
		distance_mi = EXCLUDED.distance_mi,
		avg_speed_ft_s = EXCLUDED.avg_speed_ft_s,
		max_speed_ft_s = EXCLUDED.max_speed_ft_s,
		full_datetime = EXCLUDED.full_datetime,
		spm_avg = EXCLUDED.spm_avg,
		hr_avg = EXCLUDED.hr_avg,
		wkt_type = EXCLUDED.wkt_type,
		total_elev_gain_ft = EXCLUDED.total_elev_gain_ft,
		manual = EXCLUDED.manual,
		calories = EXCLUDED.calories,
		achievement_count = EXCLUDED.achievement_count,
		kudos_count = EXCLUDED.kudos_count,
		comment_count = EXCLUDED.comment_count,
		athlete_count = EXCLUDED.athlete_count,
		rating = EXCLUDED.rating,
		avg_power = EXCLUDED.avg_power,
		sleep_rating = EXCLUDED.sleep_rating,
		suffer_score = EXCLUDED.suffer_score,
		perceived_exertion = EXCLUDED.perceived_exertion`

func (a *Activity) args() []any {
	return []any{
		a.ActivityID, a.AthleteID, a.Name, a.Description, a.MovingTimeS, a.DistanceMi, a.AvgSpeedFtS,
		a.MaxSpeedFtS, a.FullDatetime, a.SpmAvg, a.HRAvg, a.WktType, a.TotalElevGainFt, a.Manual, a.Calories,
		a.AchievementCount, a.KudosCount, a.CommentCount, a.AthleteCount, a.Rating, a.AvgPower, a.SleepRating,
		a.SufferScore, a.PerceivedExertion,
	}
}

func (a *Activity) scanTargets() []any {
	return []any{
		&a.ActivityID, &a.AthleteID, &a.Name, &a.Description, &a.MovingTimeS, &a.DistanceMi, &a.AvgSpeedFtS,
		&a.MaxSpeedFtS, &a.FullDatetime, &a.SpmAvg, &a.HRAvg, &a.WktType, &a.TotalElevGainFt, &a.Manual, &a.Calories,
		&a.AchievementCount, &a.KudosCount, &a.CommentCount, &a.AthleteCount, &a.Rating, &a.AvgPower, &a.SleepRating,
		&a.SufferScore, &a.PerceivedExertion,
	}
}

// UpsertActivities inserts or updates activities in batches and returns the number written.
func (db *DB) UpsertActivities(ctx context.Context, activities []Activity) (int, error) {
	written := 0
	for start := 0; start < len(activities); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(activities))
		chunk := activities[start:end]

		batch := &pgx.Batch{}
		for i := range chunk {
			batch.Queue(upsertActivitySQL, chunk[i].args()...)
		}

		err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
			return tx.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return written, fmt.Errorf("failed to upsert activities: %w", err)
		}
		written += len(chunk)
	}
	return written, nil
}

func (db *DB) GetActivity(ctx context.Context, activityID int64) (*Activity, error) {
	var a Activity
	err := db.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM strava.activities WHERE activity_id = $1`, activityID).
		Scan(a.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity %d: %w", activityID, err)
	}
	return &a, nil
}

// ActivityFingerprints returns the stored fingerprint of each activity of an athlete.
func (db *DB) ActivityFingerprints(ctx context.Context, athleteID int64) (map[int64]Fingerprint, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT activity_id, name, COALESCE(description, ''), wkt_type
		FROM strava.activities
		WHERE athlete_id = $1
	`, athleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]Fingerprint)
	for rows.Next() {
		var id int64
		var fp Fingerprint
		if err := rows.Scan(&id, &fp.Name, &fp.Description, &fp.WktType); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		out[id] = fp
	}
	return out, rows.Err()
}

func (db *DB) DeleteActivity(ctx context.Context, activityID int64) error {
	ct, err := db.pool.Exec(ctx, `DELETE FROM strava.activities WHERE activity_id = $1`, activityID)
	if err != nil {
		return fmt.Errorf("failed to delete activity %d: %w", activityID, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
