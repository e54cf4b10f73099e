package tag

import (
	"context"
)

// SessionProvider checks out scoped data-store sessions.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
}

// Session is a scoped data-store session. Release must be called exactly once.
type Session interface {
	// Query executes raw query text and returns ordered rows, or an error carrying the engine's message.
	Query(ctx context.Context, sql string) (*Rows, error)
	Release()
}

// SchemaDescriber returns a textual description of the queryable tables.
type SchemaDescriber interface {
	Describe(ctx context.Context) (string, error)
}
