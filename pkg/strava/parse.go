package strava

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/stridelake/stridelake/pkg/store"
)

const (
	metersPerMile = 1609.34
	feetPerMeter  = 3.28084
)

var tagPattern = regexp.MustCompile(`(\w+):\s*(\d+)`)

// Tags are the optional self-reported values athletes put in activity descriptions,
// e.g. "RPE:3|RATING:8|POWER:135|SLEEP:8. Good run!". Missing tags are 0.
type Tags struct {
	RPE    int
	Rating int
	Power  int
	Sleep  int
}

func ParseDescription(description string) Tags {
	var t Tags
	for _, m := range tagPattern.FindAllStringSubmatch(description, -1) {
		v, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch strings.ToUpper(m[1]) {
		case "RPE":
			t.RPE = v
		case "RATING":
			t.Rating = v
		case "POWER":
			t.Power = v
		case "SLEEP":
			t.Sleep = v
		}
	}
	return t
}

// ToActivity converts a detailed Strava activity into imperial units for storage.
func ToActivity(a Activity) store.Activity {
	out := store.Activity{
		ActivityID:      a.ID,
		AthleteID:       a.Athlete.ID,
		Name:            a.Name,
		Description:     a.Description,
		MovingTimeS:     int32(a.MovingTime),
		DistanceMi:      round(a.Distance/metersPerMile, 2),
		AvgSpeedFtS:     round(a.AverageSpeed*feetPerMeter, 2),
		MaxSpeedFtS:     ptr(round(a.MaxSpeed*feetPerMeter, 2)),
		TotalElevGainFt: ptr(round(a.TotalElevationGain*feetPerMeter, 2)),
		Manual:          a.Manual,
	}
	if !a.StartDate.IsZero() {
		out.FullDatetime = ptr(a.StartDate.UTC())
	}
	if a.AverageCadence != nil {
		// Strava reports single-leg cadence for runs.
		out.SpmAvg = ptr(round(*a.AverageCadence*2, 2))
	}
	if a.AverageHeartrate != nil {
		out.HRAvg = ptr(round(*a.AverageHeartrate, 2))
	}
	if a.WorkoutType != nil {
		out.WktType = ptr(int32(*a.WorkoutType))
	}
	if a.Calories != nil {
		out.Calories = ptr(round(*a.Calories, 0))
	}
	if a.SufferScore != nil {
		out.SufferScore = ptr(int32(math.Round(*a.SufferScore)))
	}
	out.AchievementCount = int32Ptr(a.AchievementCount)
	out.KudosCount = int32Ptr(a.KudosCount)
	out.CommentCount = int32Ptr(a.CommentCount)
	out.AthleteCount = int32Ptr(a.AthleteCount)

	if a.Description != nil {
		tags := ParseDescription(*a.Description)
		out.PerceivedExertion = nonZero(tags.RPE)
		out.Rating = nonZero(tags.Rating)
		out.AvgPower = nonZero(tags.Power)
		out.SleepRating = nonZero(tags.Sleep)
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func ptr[T any](v T) *T { return &v }

func int32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	return ptr(int32(*v))
}

// nonZero stores absent tags as NULL so they do not drag down averages.
func nonZero(v int) *int32 {
	if v == 0 {
		return nil
	}
	return ptr(int32(v))
}
