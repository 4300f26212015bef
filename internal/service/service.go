package service

import (
	"context"
	"log/slog"

	"github.com/roach88/req1/internal/engine"
	"github.com/roach88/req1/internal/integrity"
	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/store"
)

// Service runs req1 operations.
type Service struct {
	store  *store.Store
	engine *engine.Engine
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service.
func New(st *store.Store, eng *engine.Engine, opts ...Option) *Service {
	s := &Service{
		store:  st,
		engine: eng,
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() *store.Store {
	return s.store
}

// recomputeLevels derives and stores the levels of every object of a module.
func recomputeLevels(ctx context.Context, tx *store.Tx, moduleID string) error {
	nodes, err := tx.Hierarchy(ctx, moduleID)
	if err != nil {
		return err
	}
	_, err = tx.SetLevels(ctx, integrity.Levels(nodes))
	return err
}

// dropForeign logs mutations a trigger aimed at objects other than the
// one being saved. They are reported, never applied.
func (s *Service) dropForeign(hook ir.HookPoint, objectID string, foreign []ir.Mutation) []ir.Mutation {
	for _, m := range foreign {
		s.logger.Warn("dropping trigger mutation for another object",
			"hook", hook, "object", objectID, "target", m.ObjectID, "key", m.Key)
	}
	if foreign == nil {
		return []ir.Mutation{}
	}
	return foreign
}
