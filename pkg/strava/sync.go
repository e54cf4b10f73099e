package strava

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"github.com/stridelake/stridelake/pkg/store"
)

const (
	defaultConcurrency       = 10
	defaultDetailConcurrency = 10
)

// API is the subset of the Strava client used by the syncer.
type API interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*Token, error)
	ListActivities(ctx context.Context, accessToken string, opts ListOptions) ([]Activity, error)
	GetActivity(ctx context.Context, accessToken string, id int64) (*Activity, error)
}

// Store is the subset of the persistence layer used by the syncer.
type Store interface {
	GetAthlete(ctx context.Context, athleteID int64) (*store.Athlete, error)
	ListAthletes(ctx context.Context) ([]store.Athlete, error)
	UpsertAthlete(ctx context.Context, a store.Athlete) error
	ActivityFingerprints(ctx context.Context, athleteID int64) (map[int64]store.Fingerprint, error)
	UpsertActivities(ctx context.Context, activities []store.Activity) (int, error)
}

type SyncerConfig struct {
	Logger *slog.Logger
	API    API
	Store  Store
	Clock  clockwork.Clock

	// Concurrency bounds how many athletes are processed at once.
	Concurrency int
	// DetailConcurrency bounds detailed-activity fetches across all athletes.
	DetailConcurrency int
	ActivityTypes     []string
}

func (c *SyncerConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.API == nil {
		return errors.New("strava api is required")
	}
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.DetailConcurrency <= 0 {
		c.DetailConcurrency = defaultDetailConcurrency
	}
	if len(c.ActivityTypes) == 0 {
		c.ActivityTypes = []string{"Run"}
	}
	return nil
}

type UpdateOptions struct {
	AthleteIDs  []int64
	After       time.Time
	Before      time.Time
	Limit       int
	BypassCheck bool
}

type AthleteUpdate struct {
	AthleteID            int64 `json:"athlete_id"`
	NumUpdatedActivities int   `json:"num_updated_activities"`
}

type Syncer struct {
	log *slog.Logger
	cfg SyncerConfig

	athletePool pond.ResultPool[int]
	detailPool  pond.ResultPool[*store.Activity]
}

func NewSyncer(cfg SyncerConfig) (*Syncer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Syncer{
		log:         cfg.Logger,
		cfg:         cfg,
		athletePool: pond.NewResultPool[int](cfg.Concurrency),
		detailPool:  pond.NewResultPool[*store.Activity](cfg.DetailConcurrency),
	}, nil
}

func (s *Syncer) Close() {
	s.athletePool.StopAndWait()
	s.detailPool.StopAndWait()
}

// UpdateAll refreshes the activities of the selected athletes, or of every stored
// athlete when none are selected. A failing athlete reports 0 updated activities
// and does not fail the batch.
func (s *Syncer) UpdateAll(ctx context.Context, opts UpdateOptions) ([]AthleteUpdate, error) {
	start := s.cfg.Clock.Now()

	athletes, err := s.resolveAthletes(ctx, opts.AthleteIDs)
	if err != nil {
		return nil, err
	}
	if len(athletes) == 0 {
		s.log.Warn("sync: no athletes to process")
		return []AthleteUpdate{}, nil
	}

	group := s.athletePool.NewGroupContext(ctx)
	for _, athlete := range athletes {
		group.SubmitErr(func() (int, error) {
			n, err := s.updateAthlete(ctx, athlete, opts)
			if err != nil {
				s.log.Error("sync: failed to update athlete", "athlete_id", athlete.AthleteID, "error", err)
				AthletesProcessed.WithLabelValues("error").Inc()
				return 0, nil
			}
			AthletesProcessed.WithLabelValues("ok").Inc()
			return n, nil
		})
	}
	counts, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to sync athletes: %w", err)
	}

	out := make([]AthleteUpdate, len(athletes))
	for i, athlete := range athletes {
		out[i] = AthleteUpdate{AthleteID: athlete.AthleteID, NumUpdatedActivities: counts[i]}
	}

	now := s.cfg.Clock.Now()
	SyncDuration.Observe(now.Sub(start).Seconds())
	LastSyncTimestamp.Set(float64(now.Unix()))
	s.log.Info("sync: completed", "athletes", len(athletes), "duration", now.Sub(start))
	return out, nil
}

func (s *Syncer) resolveAthletes(ctx context.Context, ids []int64) ([]store.Athlete, error) {
	if len(ids) == 0 {
		athletes, err := s.cfg.Store.ListAthletes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list athletes: %w", err)
		}
		return athletes, nil
	}

	var athletes []store.Athlete
	for _, id := range ids {
		a, err := s.cfg.Store.GetAthlete(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("sync: athlete not found", "athlete_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get athlete %d: %w", id, err)
		}
		athletes = append(athletes, *a)
	}
	return athletes, nil
}

func (s *Syncer) updateAthlete(ctx context.Context, athlete store.Athlete, opts UpdateOptions) (int, error) {
	tok, err := s.cfg.API.RefreshAccessToken(ctx, athlete.RefreshToken)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh access token: %w", err)
	}
	if tok.RefreshToken != "" && tok.RefreshToken != athlete.RefreshToken {
		athlete.RefreshToken = tok.RefreshToken
		if err := s.cfg.Store.UpsertAthlete(ctx, athlete); err != nil {
			s.log.Warn("sync: failed to persist rotated refresh token", "athlete_id", athlete.AthleteID, "error", err)
		}
	}

	summaries, err := s.cfg.API.ListActivities(ctx, tok.AccessToken, ListOptions{
		After:  opts.After,
		Before: opts.Before,
		Limit:  opts.Limit,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list activities: %w", err)
	}

	toFetch, err := s.changedActivities(ctx, athlete.AthleteID, summaries, opts.BypassCheck)
	if err != nil {
		return 0, err
	}
	if len(toFetch) == 0 {
		s.log.Debug("sync: no new or changed activities", "athlete_id", athlete.AthleteID)
		return 0, nil
	}

	group := s.detailPool.NewGroupContext(ctx)
	for _, id := range toFetch {
		group.SubmitErr(func() (*store.Activity, error) {
			detailed, err := s.cfg.API.GetActivity(ctx, tok.AccessToken, id)
			if err != nil {
				s.log.Error("sync: failed to fetch detailed activity", "athlete_id", athlete.AthleteID, "activity_id", id, "error", err)
				return nil, nil
			}
			a := ToActivity(*detailed)
			if a.AthleteID == 0 {
				a.AthleteID = athlete.AthleteID
			}
			return &a, nil
		})
	}
	fetched, err := group.Wait()
	if err != nil {
		return 0, fmt.Errorf("failed to fetch detailed activities: %w", err)
	}

	activities := make([]store.Activity, 0, len(fetched))
	for _, a := range fetched {
		if a != nil {
			activities = append(activities, *a)
		}
	}
	s.log.Info("sync: fetched detailed activities", "athlete_id", athlete.AthleteID, "fetched", len(activities), "requested", len(toFetch))

	n, err := s.cfg.Store.UpsertActivities(ctx, activities)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert activities: %w", err)
	}
	ActivitiesUpserted.Add(float64(n))
	return n, nil
}

// changedActivities filters summaries to the configured activity types and, unless
// bypass is set, drops those whose stored fingerprint still matches.
func (s *Syncer) changedActivities(ctx context.Context, athleteID int64, summaries []Activity, bypass bool) ([]int64, error) {
	var fingerprints map[int64]store.Fingerprint
	if !bypass {
		var err error
		fingerprints, err = s.cfg.Store.ActivityFingerprints(ctx, athleteID)
		if err != nil {
			return nil, fmt.Errorf("failed to load activity fingerprints: %w", err)
		}
	}

	var ids []int64
	for _, a := range summaries {
		if !slices.Contains(s.cfg.ActivityTypes, a.Type) {
			continue
		}
		if fp, ok := fingerprints[a.ID]; ok && !changed(a, fp) {
			continue
		}
		ids = append(ids, a.ID)
	}
	s.log.Debug("sync: filtered activities", "athlete_id", athleteID, "total", len(summaries), "to_fetch", len(ids))
	return ids, nil
}

// changed compares the user-editable fields. Summaries usually omit the description,
// so it only counts when present.
func changed(a Activity, fp store.Fingerprint) bool {
	if a.Name != fp.Name {
		return true
	}
	if a.Description != nil && *a.Description != fp.Description {
		return true
	}
	switch {
	case a.WorkoutType == nil && fp.WktType == nil:
		return false
	case a.WorkoutType == nil || fp.WktType == nil:
		return true
	default:
		return int32(*a.WorkoutType) != *fp.WktType
	}
}
