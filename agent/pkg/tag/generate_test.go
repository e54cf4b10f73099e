package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTAG_ParseGenerateResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    GeneratedQuery
		wantErr bool
	}{
		{
			name: "high",
			in:   `{"query":"SELECT 1","confidence":"HIGH","follow_ups":""}`,
			want: GeneratedQuery{Query: "SELECT 1", Confidence: ConfidenceHigh},
		},
		{
			name: "fenced json",
			in:   "```json\n{\"query\":\"SELECT 1\",\"confidence\":\"MEDIUM\",\"follow_ups\":\"\"}\n```",
			want: GeneratedQuery{Query: "SELECT 1", Confidence: ConfidenceMedium},
		},
		{
			name: "low without query",
			in:   `{"confidence":"LOW","follow_ups":"Which athlete?"}`,
			want: GeneratedQuery{Confidence: ConfidenceLow, FollowUp: "Which athlete?"},
		},
		{
			name: "low default follow-up",
			in:   `{"query":"","confidence":"LOW","follow_ups":""}`,
			want: GeneratedQuery{Confidence: ConfidenceLow, FollowUp: DefaultFollowUp},
		},
		{name: "not json", in: "SELECT 1", wantErr: true},
		{name: "missing confidence", in: `{"query":"SELECT 1","follow_ups":""}`, wantErr: true},
		{name: "invalid confidence", in: `{"query":"SELECT 1","confidence":"SURE","follow_ups":""}`, wantErr: true},
		{name: "empty query", in: `{"query":"  ","confidence":"HIGH","follow_ups":""}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseGenerateResponse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTAG_GenerateSchemaRequiresAllKeys(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []string{"query", "confidence", "follow_ups"}, generateSchema.Required())
	assert.ElementsMatch(t, []string{"answer", "confidence"}, synthesizeSchema.Required())
}

func TestTAG_ParseConfidence(t *testing.T) {
	t.Parallel()

	c, err := ParseConfidence(" medium ")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceMedium, c)

	_, err = ParseConfidence("")
	require.Error(t, err)
}
