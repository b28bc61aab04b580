package store

import "context"

// Store persists the full mission set and the terminal-outcome audit log.
// The snapshot is the sole source of truth across restarts: SaveMissions
// writes the whole set after every state-changing event and LoadMissions
// returns it verbatim on startup.
type Store interface {
	// LoadMissions returns the persisted mission set. A missing snapshot
	// is not an error; it returns an empty set.
	LoadMissions(ctx context.Context) ([]*Mission, error)

	// SaveMissions atomically replaces the persisted mission set.
	SaveMissions(ctx context.Context, missions []*Mission) error

	// AppendAudit appends one terminal mission outcome, keeping only the
	// most recent entries up to the store's cap.
	AppendAudit(ctx context.Context, rec AuditRecord) error

	// ListAudit returns the retained audit records, oldest first.
	ListAudit(ctx context.Context) ([]AuditRecord, error)

	// Ping verifies the backing storage is writable.
	Ping(ctx context.Context) error
}
