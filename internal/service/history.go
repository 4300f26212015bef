package service

import (
	"context"

	"github.com/roach88/req1/internal/ir"
)

// History returns the audit trail of an object, oldest first. The trail
// outlives the object.
func (s *Service) History(ctx context.Context, objectID string) ([]ir.HistoryEntry, error) {
	return s.store.History(ctx, objectID)
}
