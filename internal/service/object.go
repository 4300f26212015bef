package service

import (
	"context"
	"fmt"

	"github.com/roach88/req1/internal/integrity"
	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/queryir"
	"github.com/roach88/req1/internal/store"
)

// CreateObjectInput describes a new object. Position nil appends the
// object after its siblings; an empty Classification takes the module
// default.
type CreateObjectInput struct {
	ModuleID       string      `json:"module_id" yaml:"module_id"`
	ParentID       *string     `json:"parent_id,omitempty" yaml:"parent_id"`
	Position       *int64      `json:"position,omitempty" yaml:"position"`
	Heading        *string     `json:"heading,omitempty" yaml:"heading"`
	Body           *string     `json:"body,omitempty" yaml:"body"`
	Attributes     ir.IRObject `json:"attributes,omitempty" yaml:"-"`
	Classification string      `json:"classification,omitempty" yaml:"classification"`
}

// UpdateObjectInput lists the fields to change. Nil fields are kept.
// Attributes replaces the whole map. Reviewed only applies when the
// content fingerprint does not change.
type UpdateObjectInput struct {
	Heading        *string     `json:"heading,omitempty"`
	Body           *string     `json:"body,omitempty"`
	Attributes     ir.IRObject `json:"attributes,omitempty"`
	Classification string      `json:"classification,omitempty"`
	ParentID       *string     `json:"parent_id,omitempty"`
	MoveToRoot     bool        `json:"move_to_root,omitempty"`
	Position       *int64      `json:"position,omitempty"`
	Reviewed       *bool       `json:"reviewed,omitempty"`
}

// SaveResult is the outcome of a create or update.
type SaveResult struct {
	Object ir.Object `json:"object"`

	// FlaggedLinks are the links that turned suspect.
	FlaggedLinks []string `json:"flagged_links"`

	// DroppedMutations are trigger mutations aimed at other objects.
	DroppedMutations []ir.Mutation `json:"dropped_mutations"`
}

// ObjectPage is one page of a filtered object listing.
type ObjectPage struct {
	Items  []ir.Object `json:"items"`
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}

// CreateObject runs the pre_save triggers, stores the object at version 1
// with its fingerprint, records a "create" history row, recomputes the
// module's levels and then runs the post_save triggers.
func (s *Service) CreateObject(ctx context.Context, in CreateObjectInput) (SaveResult, error) {
	var res SaveResult
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		mod, err := tx.GetModule(ctx, in.ModuleID)
		if err != nil {
			return err
		}

		class := mod.DefaultClassification
		if in.Classification != "" {
			if class, err = ir.ParseClassification(in.Classification); err != nil {
				return ir.BadRequest("%v", err)
			}
		}

		nodes, err := tx.Hierarchy(ctx, mod.ID)
		if err != nil {
			return err
		}
		if in.ParentID != nil {
			if err := checkParent(ctx, tx, mod.ID, *in.ParentID); err != nil {
				return err
			}
		}
		position := integrity.NextPosition(nodes, in.ParentID)
		if in.Position != nil {
			position = *in.Position
		}

		obj := ir.Object{
			ID:             s.ids.Generate(),
			ModuleID:       mod.ID,
			ParentID:       in.ParentID,
			Position:       position,
			Heading:        in.Heading,
			Body:           in.Body,
			Attributes:     in.Attributes.Clone(),
			Classification: class,
			Version:        1,
		}

		dropped, err := s.preSave(ctx, tx, &obj)
		if err != nil {
			return err
		}
		if k, missing := missingRequired(mod, obj.Attributes); missing {
			return ir.BadRequest("missing required attribute '%s'", k)
		}

		obj.ContentFingerprint = obj.Fingerprint()
		if err := tx.InsertObject(ctx, obj); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, obj, ir.ChangeCreate); err != nil {
			return err
		}
		if err := recomputeLevels(ctx, tx, mod.ID); err != nil {
			return err
		}

		res, err = s.postSave(ctx, tx, obj.ID)
		if err != nil {
			return err
		}
		res.DroppedMutations = append(dropped, res.DroppedMutations...)
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}
	s.logger.Info("object created", "object", res.Object.ID, "module", res.Object.ModuleID, "level", res.Object.Level)
	return res, nil
}

// UpdateObject applies in to an object. Every update bumps the version and
// appends an "update" history row. A changed fingerprint clears the review
// and flags the object's links suspect.
func (s *Service) UpdateObject(ctx context.Context, id string, in UpdateObjectInput) (SaveResult, error) {
	var res SaveResult
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		cur, err := tx.GetObject(ctx, id)
		if err != nil {
			return err
		}
		mod, err := tx.GetModule(ctx, cur.ModuleID)
		if err != nil {
			return err
		}

		next := cur
		next.Attributes = cur.Attributes.Clone()
		if in.Heading != nil {
			next.Heading = in.Heading
		}
		if in.Body != nil {
			next.Body = in.Body
		}
		if in.Attributes != nil {
			next.Attributes = in.Attributes.Clone()
		}
		if in.Classification != "" {
			if next.Classification, err = ir.ParseClassification(in.Classification); err != nil {
				return ir.BadRequest("%v", err)
			}
		}

		moved, err := applyMove(ctx, tx, &next, in)
		if err != nil {
			return err
		}

		next.Version = cur.Version + 1
		dropped, err := s.preSave(ctx, tx, &next)
		if err != nil {
			return err
		}
		if k, missing := missingRequired(mod, next.Attributes); missing {
			return ir.BadRequest("missing required attribute '%s'", k)
		}

		flagged, err := persist(ctx, tx, cur, &next, ir.ChangeUpdate, in.Reviewed)
		if err != nil {
			return err
		}
		if moved {
			if err := recomputeLevels(ctx, tx, mod.ID); err != nil {
				return err
			}
		}

		res, err = s.postSave(ctx, tx, next.ID)
		if err != nil {
			return err
		}
		res.FlaggedLinks = append(flagged, res.FlaggedLinks...)
		res.DroppedMutations = append(dropped, res.DroppedMutations...)
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}
	s.logger.Info("object updated", "object", id, "version", res.Object.Version, "flagged_links", len(res.FlaggedLinks))
	return res, nil
}

// DeleteObject removes an object and its links. Objects with children are
// refused. pre_delete triggers may reject the delete; mutations of
// pre_delete and post_delete triggers are never applied.
func (s *Service) DeleteObject(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		cur, err := tx.GetObject(ctx, id)
		if err != nil {
			return err
		}
		children, err := tx.ChildCount(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return ir.Conflict("object %s has %d children", id, children)
		}

		report, err := s.engine.RunTriggers(ctx, tx, cur.ModuleID, ir.HookPreDelete, cur.Projection())
		if err != nil {
			return err
		}
		s.dropForeign(ir.HookPreDelete, id, report.Mutations)

		if err := appendHistory(ctx, tx, cur, ir.ChangeDelete); err != nil {
			return err
		}
		if err := tx.DeleteObject(ctx, id); err != nil {
			return err
		}
		if err := recomputeLevels(ctx, tx, cur.ModuleID); err != nil {
			return err
		}

		report, err = s.engine.RunTriggers(ctx, tx, cur.ModuleID, ir.HookPostDelete, cur.Projection())
		if err != nil {
			return err
		}
		s.dropForeign(ir.HookPostDelete, id, report.Mutations)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("object deleted", "object", id)
	return nil
}

// GetObject returns an object by id.
func (s *Service) GetObject(ctx context.Context, id string) (ir.Object, error) {
	return s.store.GetObject(ctx, id)
}

// ListObjects returns one page of a module's objects.
func (s *Service) ListObjects(ctx context.Context, moduleID string, filter queryir.ObjectFilter) (ObjectPage, error) {
	if _, err := s.store.GetModule(ctx, moduleID); err != nil {
		return ObjectPage{}, err
	}
	items, total, err := s.store.ListObjects(ctx, moduleID, filter)
	if err != nil {
		return ObjectPage{}, err
	}
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = queryir.DefaultLimit
	case limit > queryir.MaxLimit:
		limit = queryir.MaxLimit
	}
	return ObjectPage{Items: items, Total: total, Offset: filter.Offset, Limit: limit}, nil
}

// preSave runs the pre_save triggers against obj as it will be saved and
// merges the mutations aimed at it into its attributes. Mutations for
// other objects are returned.
func (s *Service) preSave(ctx context.Context, tx *store.Tx, obj *ir.Object) ([]ir.Mutation, error) {
	report, err := s.engine.RunTriggers(ctx, tx, obj.ModuleID, ir.HookPreSave, obj.Projection())
	if err != nil {
		return nil, err
	}
	own, foreign := integrity.ForObject(report.Mutations, obj.ID)
	if len(own) > 0 {
		obj.Attributes = integrity.MergeAttributes(obj.Attributes, own)
	}
	return s.dropForeign(ir.HookPreSave, obj.ID, foreign), nil
}

// postSave runs the post_save triggers against the stored object. Their
// own mutations are persisted as a "script" change.
func (s *Service) postSave(ctx context.Context, tx *store.Tx, id string) (SaveResult, error) {
	obj, err := tx.GetObject(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}
	res := SaveResult{Object: obj, FlaggedLinks: []string{}}

	report, err := s.engine.RunTriggers(ctx, tx, obj.ModuleID, ir.HookPostSave, obj.Projection())
	if err != nil {
		return SaveResult{}, err
	}
	own, foreign := integrity.ForObject(report.Mutations, obj.ID)
	res.DroppedMutations = s.dropForeign(ir.HookPostSave, obj.ID, foreign)
	if len(own) == 0 {
		return res, nil
	}

	next := obj
	next.Attributes = integrity.MergeAttributes(obj.Attributes, own)
	if res.FlaggedLinks, err = persist(ctx, tx, obj, &next, ir.ChangeScript, nil); err != nil {
		return SaveResult{}, err
	}
	res.Object = next
	return res, nil
}

// persist stores next as the successor of prev: version bump, fresh
// fingerprint, review invalidation and suspect flagging on content change,
// then one history row of the given change type. Returns the flagged link
// ids.
func persist(ctx context.Context, tx *store.Tx, prev ir.Object, next *ir.Object, change ir.ChangeType, reviewed *bool) ([]string, error) {
	next.Version = prev.Version + 1
	next.ContentFingerprint = next.Fingerprint()

	flagged := []string{}
	if next.ContentFingerprint != prev.ContentFingerprint {
		next.ReviewedFingerprint = nil
		links, err := tx.LinksOfObject(ctx, next.ID)
		if err != nil {
			return nil, err
		}
		flagged = integrity.SuspectLinks(links, next.ID, next.ContentFingerprint)
		if _, err := tx.MarkSuspect(ctx, flagged); err != nil {
			return nil, err
		}
	} else if reviewed != nil {
		next.ReviewedFingerprint = nil
		if *reviewed {
			fp := next.ContentFingerprint
			next.ReviewedFingerprint = &fp
		}
	}

	if err := tx.UpdateObject(ctx, *next); err != nil {
		return nil, err
	}
	if err := appendHistory(ctx, tx, *next, change); err != nil {
		return nil, err
	}
	return flagged, nil
}

// applyMove applies the parent and position changes of in to next.
// Reports whether the hierarchy changed.
func applyMove(ctx context.Context, tx *store.Tx, next *ir.Object, in UpdateObjectInput) (bool, error) {
	if in.MoveToRoot && in.ParentID != nil {
		return false, ir.BadRequest("parent_id and move_to_root are mutually exclusive")
	}

	moved := false
	parent := next.ParentID
	switch {
	case in.MoveToRoot:
		if parent != nil {
			parent, moved = nil, true
		}
	case in.ParentID != nil:
		if parent == nil || *parent != *in.ParentID {
			if err := checkParent(ctx, tx, next.ModuleID, *in.ParentID); err != nil {
				return false, err
			}
			parent, moved = in.ParentID, true
		}
	}

	if !moved && in.Position == nil {
		return false, nil
	}

	nodes, err := tx.Hierarchy(ctx, next.ModuleID)
	if err != nil {
		return false, err
	}
	if moved && integrity.WouldCycle(nodes, next.ID, parent) {
		return false, ir.BadRequest("cannot move object %s under its own descendant", next.ID)
	}

	next.ParentID = parent
	switch {
	case in.Position != nil:
		next.Position = *in.Position
	case moved:
		next.Position = integrity.NextPosition(nodes, parent)
	}
	return true, nil
}

// checkParent verifies that a parent exists in the module.
func checkParent(ctx context.Context, tx *store.Tx, moduleID, parentID string) error {
	parent, err := tx.GetObject(ctx, parentID)
	if ir.IsNotFound(err) {
		return ir.BadRequest("parent object %s not found", parentID)
	}
	if err != nil {
		return err
	}
	if parent.ModuleID != moduleID {
		return ir.BadRequest("parent object %s belongs to another module", parentID)
	}
	return nil
}

func appendHistory(ctx context.Context, tx *store.Tx, obj ir.Object, change ir.ChangeType) error {
	_, err := tx.AppendHistory(ctx, ir.HistoryEntry{
		ObjectID:    obj.ID,
		ModuleID:    obj.ModuleID,
		Version:     obj.Version,
		ChangeType:  change,
		Heading:     obj.Heading,
		Body:        obj.Body,
		Attributes:  obj.Attributes,
		Fingerprint: obj.ContentFingerprint,
	})
	if err != nil {
		return fmt.Errorf("record %s history for %s: %w", change, obj.ID, err)
	}
	return nil
}
