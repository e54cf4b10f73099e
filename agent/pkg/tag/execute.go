package tag

import (
	"context"
	"fmt"
	"strings"
)

// CleanQuery strips whitespace and markdown fences the model may have wrapped around a query.
func CleanQuery(query string) string {
	query = strings.TrimSpace(query)
	query = strings.ReplaceAll(query, "```sql", "")
	query = strings.ReplaceAll(query, "```", "")
	return strings.TrimSpace(query)
}

// Execute cleans and runs a generated query inside a scoped session. The session is released on
// every path once it has been acquired. An engine error is returned as an *ExecutionFailure.
func (r *Retriever) Execute(ctx context.Context, gq GeneratedQuery, callID string) (*QueryResult, error) {
	query := CleanQuery(gq.Query)

	session, err := r.cfg.Store.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	defer session.Release()

	r.log.Debug("tag: executing query", "query", query)
	rows, err := session.Query(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ExecutionFailure{Query: query, Err: err}
	}
	if rows == nil {
		rows = &Rows{}
	}

	return &QueryResult{
		Columns:       rows.Columns,
		Rows:          rows.Values,
		RowCount:      len(rows.Values),
		ExecutedQuery: query,
		CallID:        callID,
		Confidence:    gq.Confidence,
	}, nil
}
