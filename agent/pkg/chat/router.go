package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

var ErrEmptyQuestion = errors.New("question is empty")

var RoutedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stridelake_chat_routed_total",
		Help: "Total number of questions routed by classification",
	},
	[]string{"classification"},
)

type RouterConfig struct {
	Logger *slog.Logger
	LLM    llm.Client
	TAG    Retriever
	Basic  Retriever
	Model  string
}

func (c *RouterConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.LLM == nil {
		return errors.New("llm client is required")
	}
	if c.TAG == nil {
		return errors.New("tag retriever is required")
	}
	if c.Basic == nil {
		return errors.New("basic retriever is required")
	}
	return nil
}

// Router classifies each question and dispatches it to the TAG or basic retriever.
type Router struct {
	log            *slog.Logger
	cfg            RouterConfig
	classifyPrompt string
}

func NewRouter(cfg RouterConfig) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prompt, err := loadPrompt("CLASSIFY.md")
	if err != nil {
		return nil, err
	}
	return &Router{log: cfg.Logger, cfg: cfg, classifyPrompt: prompt}, nil
}

func (r *Router) Retrieve(ctx context.Context, question string, history []llm.Message) (*Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	class := r.classify(ctx, question, history)
	RoutedTotal.WithLabelValues(string(class.Classification)).Inc()
	r.log.Info("chat: question classified", "classification", class.Classification, "reasoning", class.Reasoning)

	target := r.cfg.Basic
	if class.Classification == ClassificationDataAnalysis {
		target = r.cfg.TAG
	}
	reply, err := target.Retrieve(ctx, question, history)
	if err != nil {
		return nil, err
	}
	reply.Classification = class.Classification
	return reply, nil
}
