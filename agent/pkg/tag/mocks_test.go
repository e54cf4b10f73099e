package tag_test

import (
	"context"
	"sync"

	"github.com/stridelake/stridelake/agent/pkg/llm"
	"github.com/stridelake/stridelake/agent/pkg/tag"
)

const testSchema = "Table: strava.activities\nColumns:\n- activity_id (BIGINT, PK)"

type mockLLM struct {
	GenerateFunc   func(call int, req llm.Request) (llm.Response, error)
	SynthesizeFunc func(call int, req llm.Request) (llm.Response, error)

	mu                  sync.Mutex
	generateRequests   []llm.Request
	synthesizeRequests []llm.Request
}

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	var call int
	isGenerate := req.Schema != nil && req.Schema.Name == "generated_query"
	if isGenerate {
		m.generateRequests = append(m.generateRequests, req)
		call = len(m.generateRequests)
	} else {
		m.synthesizeRequests = append(m.synthesizeRequests, req)
		call = len(m.synthesizeRequests)
	}
	m.mu.Unlock()

	if isGenerate {
		return m.GenerateFunc(call, req)
	}
	if m.SynthesizeFunc == nil {
		return llm.Response{Text: `{"answer":"done","confidence":"HIGH"}`, CallID: "synth"}, nil
	}
	return m.SynthesizeFunc(call, req)
}

func (m *mockLLM) generateCalls() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.generateRequests...)
}

func (m *mockLLM) synthesizeCalls() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.synthesizeRequests...)
}

type mockStore struct {
	AcquireFunc func(ctx context.Context) error
	QueryFunc   func(call int, sql string) (*tag.Rows, error)

	mu       sync.Mutex
	acquired int
	released int
	queries  []string
}

func (m *mockStore) Acquire(ctx context.Context) (tag.Session, error) {
	if m.AcquireFunc != nil {
		if err := m.AcquireFunc(ctx); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	m.acquired++
	m.mu.Unlock()
	return &mockSession{store: m}, nil
}

func (m *mockStore) counts() (acquired, released int, queries []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.released, append([]string(nil), m.queries...)
}

type mockSession struct {
	store    *mockStore
	released bool
}

func (s *mockSession) Query(ctx context.Context, sql string) (*tag.Rows, error) {
	s.store.mu.Lock()
	s.store.queries = append(s.store.queries, sql)
	call := len(s.store.queries)
	s.store.mu.Unlock()
	return s.store.QueryFunc(call, sql)
}

func (s *mockSession) Release() {
	if s.released {
		panic("session released twice")
	}
	s.released = true
	s.store.mu.Lock()
	s.store.released++
	s.store.mu.Unlock()
}

type mockSchema struct {
	DescribeFunc func(ctx context.Context) (string, error)
}

func (m *mockSchema) Describe(ctx context.Context) (string, error) {
	if m.DescribeFunc == nil {
		return testSchema, nil
	}
	return m.DescribeFunc(ctx)
}
