package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

type testAnswer struct {
	Answer     string `json:"answer"`
	Confidence string `json:"confidence"`
	Note       string `json:"note,omitempty"`
}

func TestLLM_Schema_Derive(t *testing.T) {
	t.Parallel()

	s, err := llm.SchemaFor[testAnswer]("answer", "An answer")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"answer", "confidence"}, s.Required())
	props := s.Properties()
	require.Contains(t, props, "answer")
	require.Contains(t, props, "confidence")
	require.Contains(t, props, "note")

	raw, err := s.JSON()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$schema")
}

func TestLLM_Schema_Validate(t *testing.T) {
	t.Parallel()

	s := llm.MustSchemaFor[testAnswer]("answer", "An answer").WithEnum("confidence", "HIGH", "LOW")

	require.NoError(t, s.Validate([]byte(`{"answer":"42","confidence":"HIGH"}`)))
	require.NoError(t, s.Validate([]byte(`{"answer":"42","confidence":"LOW","note":"x"}`)))

	err := s.Validate([]byte(`{"answer":"42"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence")

	require.Error(t, s.Validate([]byte(`{"answer":"42","confidence":"MAYBE"}`)))
	require.Error(t, s.Validate([]byte(`not json`)))
}

func TestLLM_Schema_WithEnumUnknownProperty(t *testing.T) {
	t.Parallel()

	s := llm.MustSchemaFor[testAnswer]("answer", "An answer")
	assert.Panics(t, func() { s.WithEnum("missing", "A") })
}
