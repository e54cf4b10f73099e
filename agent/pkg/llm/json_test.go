package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

func TestLLM_ExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "generic fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose", in: `Here you go: {"a":{"b":"}"}} thanks`, want: `{"a":{"b":"}"}}`},
		{name: "escaped quote", in: `{"a":"x\"}"}`, want: `{"a":"x\"}"}`},
		{name: "unbalanced", in: `{"a":1`, want: ""},
		{name: "none", in: "SELECT 1", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, llm.ExtractJSON(tt.in))
		})
	}
}
