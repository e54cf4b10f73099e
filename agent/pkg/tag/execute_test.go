package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTAG_CleanQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean", in: "SELECT 1", want: "SELECT 1"},
		{name: "whitespace", in: "  \n SELECT 1 \t\n", want: "SELECT 1"},
		{name: "sql fence", in: "```sql\nSELECT COUNT(*)\nFROM strava.activities\n```", want: "SELECT COUNT(*)\nFROM strava.activities"},
		{name: "bare fence", in: "```\nSELECT 1\n```", want: "SELECT 1"},
		{name: "empty", in: "```sql\n```", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CleanQuery(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CleanQuery(got), "cleaning must be idempotent")
		})
	}
}
