package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stridelake/stridelake/agent/pkg/chat"
	"github.com/stridelake/stridelake/agent/pkg/llm"
	"github.com/stridelake/stridelake/api/metrics"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

type ChatMeta struct {
	Route            string   `json:"route"`
	Classification   string   `json:"classification,omitempty"`
	CompletionID     string   `json:"completion_id,omitempty"`
	Outcome          string   `json:"outcome,omitempty"`
	ExecutedQuery    string   `json:"executed_query,omitempty"`
	QueryConfidence  string   `json:"query_confidence,omitempty"`
	AnswerConfidence string   `json:"answer_confidence,omitempty"`
	Columns          []string `json:"columns,omitempty"`
	Rows             [][]any  `json:"rows,omitempty"`
}

type ChatResponse struct {
	Response ChatMessage `json:"response"`
	Meta     ChatMeta    `json:"meta"`
}

func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.rejectChat(w, metrics.RejectInvalidBody, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.rejectChat(w, metrics.RejectEmptyMessage, "message is required")
		return
	}

	history, err := parseHistory(req.History)
	if err != nil {
		h.rejectChat(w, metrics.RejectInvalidHistory, err.Error())
		return
	}

	reply, err := h.cfg.Chat.Retrieve(r.Context(), req.Message, history)
	if errors.Is(err, chat.ErrEmptyQuestion) {
		h.rejectChat(w, metrics.RejectEmptyMessage, "message is required")
		return
	}
	if err != nil {
		h.log.Error("api: chat failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}

	metrics.RecordChatReply(string(reply.Route), reply.Outcome)
	h.writeJSON(w, http.StatusOK, ChatResponse{
		Response: ChatMessage{Role: string(llm.RoleAssistant), Content: reply.Text},
		Meta: ChatMeta{
			Route:            string(reply.Route),
			Classification:   string(reply.Classification),
			CompletionID:     reply.CompletionID,
			Outcome:          reply.Outcome,
			ExecutedQuery:    reply.ExecutedQuery,
			QueryConfidence:  reply.QueryConfidence,
			AnswerConfidence: reply.AnswerConfidence,
			Columns:          reply.Columns,
			Rows:             reply.Rows,
		},
	})
}

// parseHistory validates caller-supplied turns. Only user and assistant turns are accepted; system and
// developer turns are reserved for prompts built server side.
func parseHistory(in []ChatMessage) ([]llm.Message, error) {
	history := make([]llm.Message, 0, len(in))
	for i, m := range in {
		role, err := llm.ParseRole(m.Role)
		if err != nil || (role != llm.RoleUser && role != llm.RoleAssistant) {
			return nil, fmt.Errorf("invalid role %q in history[%d]", m.Role, i)
		}
		msg, err := llm.NewMessage(role, m.Content)
		if err != nil {
			return nil, fmt.Errorf("invalid history[%d]: %w", i, err)
		}
		history = append(history, msg)
	}
	return history, nil
}

func (h *Handlers) rejectChat(w http.ResponseWriter, reason, msg string) {
	metrics.ChatRejected.WithLabelValues(reason).Inc()
	h.writeError(w, http.StatusBadRequest, msg)
}
