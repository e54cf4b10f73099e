package tag

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTAG_FormatRows(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Query returned no results.", FormatRows([]string{"a"}, nil, 10))
	})

	t.Run("values", func(t *testing.T) {
		t.Parallel()
		got := FormatRows(
			[]string{"athlete_name", "distance_mi", "runs", "day", "note"},
			[][]any{{"Jacob", 3.3333333333333335, int64(5), time.Date(2025, 1, 15, 7, 30, 0, 0, time.UTC), nil}},
			10,
		)
		want := "Columns: athlete_name, distance_mi, runs, day, note\n" +
			"Rows (1 total):\n" +
			"Jacob | 3.33 | 5 | 2025-01-15 07:30:00 | NULL\n"
		assert.Equal(t, want, got)
	})

	t.Run("whole floats and long strings", func(t *testing.T) {
		t.Parallel()
		long := strings.Repeat("x", 150)
		got := FormatRows([]string{"a", "b"}, [][]any{{float64(26), long}}, 10)
		assert.Contains(t, got, "26 | "+strings.Repeat("x", 97)+"...\n")
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		rows := make([][]any, 7)
		for i := range rows {
			rows[i] = []any{int64(i)}
		}
		got := FormatRows([]string{"n"}, rows, 5)
		assert.Contains(t, got, "Rows (7 total):\n0\n1\n2\n3\n4\n... and 2 more rows\n")
	})
}

func TestTAG_Truncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "exact", in: "abcde", n: 5, want: "abcde"},
		{name: "ascii", in: "abcdef", n: 3, want: "abc..."},
		{name: "cut inside rune backs off", in: "€€€", n: 4, want: "€..."},
		{name: "cut on rune boundary", in: "€€€", n: 6, want: "€€..."},
		{name: "no whole rune fits", in: "€€", n: 2, want: "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}

	t.Run("long multibyte cell", func(t *testing.T) {
		t.Parallel()
		got := FormatRows([]string{"note"}, [][]any{{strings.Repeat("€", 50)}}, 10)
		assert.True(t, utf8.ValidString(got))
		assert.Contains(t, got, strings.Repeat("€", 32)+"...\n")
	})
}
