package service

import (
	"context"
	"strings"

	"github.com/roach88/req1/internal/integrity"
	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/store"
)

// LinkInput describes a new link.
type LinkInput struct {
	SourceID   string      `json:"source_id"`
	TargetID   string      `json:"target_id"`
	LinkTypeID string      `json:"link_type_id"`
	Attributes ir.IRObject `json:"attributes,omitempty"`
}

// CreateLinkType registers a link type. Names are unique.
func (s *Service) CreateLinkType(ctx context.Context, name, description string) (ir.LinkType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ir.LinkType{}, ir.BadRequest("link type name is required")
	}
	lt := ir.LinkType{ID: s.ids.Generate(), Name: name, Description: description}
	if err := s.store.InsertLinkType(ctx, lt); err != nil {
		return ir.LinkType{}, err
	}
	return lt, nil
}

// LinkTypes returns every link type ordered by name.
func (s *Service) LinkTypes(ctx context.Context) ([]ir.LinkType, error) {
	return s.store.ListLinkTypes(ctx)
}

// LinkTypeByName returns a link type by name.
func (s *Service) LinkTypeByName(ctx context.Context, name string) (ir.LinkType, error) {
	return s.store.LinkTypeByName(ctx, name)
}

// CreateLink links two distinct objects. The link starts clean: it stores
// the current fingerprints of both endpoints.
func (s *Service) CreateLink(ctx context.Context, in LinkInput) (ir.Link, error) {
	if in.SourceID == in.TargetID {
		return ir.Link{}, ir.BadRequest("a link needs two distinct objects")
	}
	var link ir.Link
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetLinkType(ctx, in.LinkTypeID); err != nil {
			return err
		}
		src, err := linkEndpoint(ctx, tx, "source", in.SourceID)
		if err != nil {
			return err
		}
		tgt, err := linkEndpoint(ctx, tx, "target", in.TargetID)
		if err != nil {
			return err
		}
		link = integrity.Resolve(ir.Link{
			ID:         s.ids.Generate(),
			SourceID:   src.ID,
			TargetID:   tgt.ID,
			LinkTypeID: in.LinkTypeID,
			Attributes: in.Attributes.Clone(),
		}, src.ContentFingerprint, tgt.ContentFingerprint)
		return tx.InsertLink(ctx, link)
	})
	if err != nil {
		return ir.Link{}, err
	}
	s.logger.Info("link created", "link", link.ID, "source", link.SourceID, "target", link.TargetID)
	return link, nil
}

// ResolveLink clears the suspect flag and stores the endpoints' current
// fingerprints as the new baseline.
func (s *Service) ResolveLink(ctx context.Context, id string) (ir.Link, error) {
	var link ir.Link
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		cur, err := tx.GetLink(ctx, id)
		if err != nil {
			return err
		}
		src, err := tx.GetObject(ctx, cur.SourceID)
		if err != nil {
			return err
		}
		tgt, err := tx.GetObject(ctx, cur.TargetID)
		if err != nil {
			return err
		}
		link = integrity.Resolve(cur, src.ContentFingerprint, tgt.ContentFingerprint)
		return tx.UpdateLink(ctx, link)
	})
	if err != nil {
		return ir.Link{}, err
	}
	s.logger.Info("link resolved", "link", id)
	return link, nil
}

// DeleteLink removes a link.
func (s *Service) DeleteLink(ctx context.Context, id string) error {
	return s.store.DeleteLink(ctx, id)
}

// GetLink returns a link by id.
func (s *Service) GetLink(ctx context.Context, id string) (ir.Link, error) {
	return s.store.GetLink(ctx, id)
}

// ListLinks returns the links touching a module, ordered by id.
func (s *Service) ListLinks(ctx context.Context, moduleID string) ([]ir.Link, error) {
	if _, err := s.store.GetModule(ctx, moduleID); err != nil {
		return nil, err
	}
	return s.store.ModuleLinks(ctx, moduleID)
}

func linkEndpoint(ctx context.Context, tx *store.Tx, side, id string) (ir.Object, error) {
	obj, err := tx.GetObject(ctx, id)
	if ir.IsNotFound(err) {
		return ir.Object{}, ir.BadRequest("%s object %s not found", side, id)
	}
	return obj, err
}
