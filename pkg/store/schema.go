package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// StaticSchemaDescription describes the queryable tables for the generation prompt.
const StaticSchemaDescription = `Table: strava.athletes
Description: Strava athletes who connected their accounts.
Columns:
- athlete_id (BIGINT, PK): Unique identifier for the athlete.
- athlete_name (TEXT, NOT NULL): Name of the athlete.
- refresh_token (TEXT, NOT NULL): OAuth refresh token.
- email (TEXT, UNIQUE, NOT NULL): Athlete's email address.
Notes:
- One athlete has many activities.
- Never disclose refresh_token or email in any context.

Table: strava.activities
Description: Strava run activities with metadata, performance metrics, and engagement details.
Columns:
- activity_id (BIGINT, PK): Unique identifier for the activity.
- athlete_id (BIGINT, FK -> strava.athletes.athlete_id, NOT NULL): Athlete who recorded the activity.
- name (TEXT, NOT NULL): Name of the activity.
- description (TEXT, NULL): Notes written by the athlete.
- moving_time_s (INTEGER, NOT NULL): Moving time in seconds. Use this for all duration arithmetic.
- moving_time (TIME, NOT NULL): Moving time as HH:MM:SS. Display only, never aggregate.
- distance_mi (DOUBLE PRECISION, NOT NULL): Distance in miles.
- pace_min_mi (TIME, NULL): Pace per mile as HH:MM:SS. Display only, never aggregate.
- avg_speed_ft_s (DOUBLE PRECISION, NOT NULL): Average speed in feet per second.
- max_speed_ft_s (DOUBLE PRECISION, NULL): Maximum speed in feet per second.
- full_datetime (TIMESTAMP, NULL): Local start time of the activity. Use this for date-based calculations.
- spm_avg (DOUBLE PRECISION, NULL): Average cadence in steps per minute.
- hr_avg (DOUBLE PRECISION, NULL): Average heart rate in bpm.
- wkt_type (INTEGER, NULL): Run type (0 = default, 1 = race, 2 = long run, 3 = workout).
- total_elev_gain_ft (DOUBLE PRECISION, NULL): Total elevation gain in feet.
- manual (BOOLEAN, NOT NULL): Whether the activity was entered manually.
- calories (DOUBLE PRECISION, NULL): Calories burned.
- achievement_count (INTEGER, NULL): Achievements earned.
- kudos_count (INTEGER, NULL): Kudos received.
- comment_count (INTEGER, NULL): Comments received.
- athlete_count (INTEGER, NULL): Athletes who took part in the activity.
- rating (INTEGER, NULL): Athlete's rating of the run (1-10).
- avg_power (INTEGER, NULL): Average power in watts.
- sleep_rating (INTEGER, NULL): How well the athlete slept the night before (1-10). Not hours slept.
- suffer_score (INTEGER, NULL): Strava's relative effort score.
- perceived_exertion (INTEGER, NULL): Athlete's perceived exertion (1-10).
Notes:
- If the user asks for a specific type of run, filter by wkt_type.`

const schemaCacheKey = "schema"

// Column is a row of information_schema.columns.
type Column struct {
	Table    string
	Name     string
	DataType string
	Nullable bool
}

// ColumnLister lists the live columns of the queryable tables.
type ColumnLister interface {
	Columns(ctx context.Context) ([]Column, error)
}

type SchemaDescriberConfig struct {
	Logger   *slog.Logger
	Columns  ColumnLister // optional; static description only when nil
	CacheTTL time.Duration
}

func (c *SchemaDescriberConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	return nil
}

// SchemaDescriber implements tag.SchemaDescriber.
type SchemaDescriber struct {
	log *slog.Logger
	cfg SchemaDescriberConfig

	cache   *ttlcache.Cache[string, any]
	cacheMu sync.RWMutex
}

func NewSchemaDescriber(cfg SchemaDescriberConfig) (*SchemaDescriber, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SchemaDescriber{
		log:   cfg.Logger,
		cfg:   cfg,
		cache: ttlcache.New(ttlcache.WithTTL[string, any](cfg.CacheTTL)),
	}, nil
}

// Describe returns the static description, followed by the live column listing when available.
// A failed live lookup falls back to the static description and is not cached.
func (d *SchemaDescriber) Describe(ctx context.Context) (string, error) {
	if cached := d.getCached(); cached != "" {
		return cached, nil
	}
	if d.cfg.Columns == nil {
		return StaticSchemaDescription, nil
	}

	columns, err := d.cfg.Columns.Columns(ctx)
	if err != nil {
		d.log.Warn("store: failed to list live columns, using static schema", "error", err)
		return StaticSchemaDescription, nil
	}

	desc := StaticSchemaDescription
	if len(columns) > 0 {
		desc += "\n\n" + formatColumns(columns)
	}
	d.setCached(desc)
	return desc, nil
}

func (d *SchemaDescriber) getCached() string {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	cached := d.cache.Get(schemaCacheKey)
	if cached == nil {
		return ""
	}
	return cached.Value().(string)
}

func (d *SchemaDescriber) setCached(desc string) {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	d.cache.Set(schemaCacheKey, desc, d.cfg.CacheTTL)
}

func formatColumns(columns []Column) string {
	var sb strings.Builder
	sb.WriteString("Live columns:")
	table := ""
	for _, c := range columns {
		if c.Table != table {
			table = c.Table
			sb.WriteString(fmt.Sprintf("\n%s:", table))
		}
		null := "NOT NULL"
		if c.Nullable {
			null = "NULL"
		}
		sb.WriteString(fmt.Sprintf("\n- %s (%s, %s)", c.Name, strings.ToUpper(c.DataType), null))
	}
	return sb.String()
}

// Columns lists the columns of the strava schema from information_schema.
func (db *DB) Columns(ctx context.Context) ([]Column, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT table_schema || '.' || table_name, column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = 'strava'
		ORDER BY table_name, ordinal_position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Table, &c.Name, &c.DataType, &c.Nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
