package ir

import "fmt"

// Classification is the normative weight of a requirement object.
type Classification string

const (
	ClassNormative   Classification = "normative"
	ClassInformative Classification = "informative"
	ClassHeading     Classification = "heading"
)

// Valid reports whether c is one of the fixed classifications.
func (c Classification) Valid() bool {
	switch c {
	case ClassNormative, ClassInformative, ClassHeading:
		return true
	}
	return false
}

// ParseClassification validates a classification label.
func ParseClassification(s string) (Classification, error) {
	c := Classification(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid classification %q: must be normative, informative or heading", s)
	}
	return c, nil
}

// ScriptType is the kind of a user script.
type ScriptType string

const (
	ScriptTrigger ScriptType = "trigger"
	ScriptLayout  ScriptType = "layout"
	ScriptAction  ScriptType = "action"
)

// Valid reports whether t is a known script type.
func (t ScriptType) Valid() bool {
	switch t {
	case ScriptTrigger, ScriptLayout, ScriptAction:
		return true
	}
	return false
}

// HookPoint names the lifecycle event a trigger script runs at.
type HookPoint string

const (
	HookPreSave    HookPoint = "pre_save"
	HookPostSave   HookPoint = "post_save"
	HookPreDelete  HookPoint = "pre_delete"
	HookPostDelete HookPoint = "post_delete"

	// HookValidate is only used by validation sweeps.
	HookValidate HookPoint = "validate"
)

// Valid reports whether h is a hook point a trigger script may declare.
func (h HookPoint) Valid() bool {
	switch h {
	case HookPreSave, HookPostSave, HookPreDelete, HookPostDelete, HookValidate:
		return true
	}
	return false
}

// Module groups objects and the scripts that govern them.
type Module struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"name"`
	Prefix                string         `json:"prefix,omitempty"`
	DefaultClassification Classification `json:"default_classification"`
	RequiredAttributes    []string       `json:"required_attributes"`
}

// Object is a requirement object as persisted.
type Object struct {
	ID                  string         `json:"id"`
	ModuleID            string         `json:"module_id"`
	ParentID            *string        `json:"parent_id,omitempty"`
	Position            int64          `json:"position"`
	Level               string         `json:"level"`
	Heading             *string        `json:"heading,omitempty"`
	Body                *string        `json:"body,omitempty"`
	Attributes          IRObject       `json:"attributes,omitempty"`
	Classification      Classification `json:"classification"`
	Version             int64          `json:"version"`
	ContentFingerprint  string         `json:"content_fingerprint"`
	ReviewedFingerprint *string        `json:"reviewed_fingerprint,omitempty"`
}

// NeedsReview reports whether the current content has not been reviewed.
func (o *Object) NeedsReview() bool {
	return o.ReviewedFingerprint == nil || *o.ReviewedFingerprint != o.ContentFingerprint
}

// Projection returns the script-visible view of the object.
func (o *Object) Projection() ObjectProjection {
	p := ObjectProjection{
		ID:         o.ID,
		Heading:    o.Heading,
		Body:       o.Body,
		Attributes: o.Attributes.Clone(),
		Version:    o.Version,
	}
	if o.Level != "" {
		level := o.Level
		p.Level = &level
	}
	if o.Classification != "" {
		class := string(o.Classification)
		p.Classification = &class
	}
	return p
}

// LinkType names a kind of traceability relation (e.g. "satisfies").
type LinkType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Link is a typed relation between two objects.
// !Suspect implies the stored fingerprints equal the current endpoint
// fingerprints. Suspect is sticky until an explicit resolve.
type Link struct {
	ID                string   `json:"id"`
	SourceID          string   `json:"source_id"`
	TargetID          string   `json:"target_id"`
	LinkTypeID        string   `json:"link_type_id"`
	Attributes        IRObject `json:"attributes,omitempty"`
	Suspect           bool     `json:"suspect"`
	SourceFingerprint string   `json:"source_fingerprint"`
	TargetFingerprint string   `json:"target_fingerprint"`
}

// Projection returns the script-visible view of the link.
func (l *Link) Projection() LinkProjection {
	return LinkProjection{
		ID:         l.ID,
		SourceID:   l.SourceID,
		TargetID:   l.TargetID,
		LinkTypeID: l.LinkTypeID,
		Suspect:    l.Suspect,
	}
}

// Script is a user script definition.
// Hook is set for trigger scripts only.
type Script struct {
	ID       string     `json:"id"`
	ModuleID string     `json:"module_id"`
	Name     string     `json:"name"`
	Type     ScriptType `json:"type"`
	Hook     HookPoint  `json:"hook_point,omitempty"`
	Source   string     `json:"source"`
	Enabled  bool       `json:"enabled"`
	Seq      int64      `json:"seq"`
}

// ObjectProjection is what scripts see of an object.
type ObjectProjection struct {
	ID             string   `json:"id"`
	Heading        *string  `json:"heading"`
	Body           *string  `json:"body"`
	Level          *string  `json:"level"`
	Classification *string  `json:"classification"`
	Attributes     IRObject `json:"attributes"`
	Version        int64    `json:"version"`
}

// Value converts the projection into the tagged value handed to guests.
// Absent optional fields are null.
func (p ObjectProjection) Value() IRObject {
	opt := func(s *string) IRValue {
		if s == nil {
			return IRNull{}
		}
		return IRString(*s)
	}
	var attrs IRValue = IRNull{}
	if p.Attributes != nil {
		attrs = p.Attributes.Clone()
	}
	return IRObject{
		"id":             IRString(p.ID),
		"heading":        opt(p.Heading),
		"body":           opt(p.Body),
		"level":          opt(p.Level),
		"classification": opt(p.Classification),
		"attributes":     attrs,
		"version":        IRInt(p.Version),
	}
}

// LinkProjection is what scripts see of a link.
type LinkProjection struct {
	ID         string `json:"id"`
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
	LinkTypeID string `json:"link_type_id"`
	Suspect    bool   `json:"suspect"`
}

// Value converts the projection into the tagged value handed to guests.
func (p LinkProjection) Value() IRObject {
	return IRObject{
		"id":           IRString(p.ID),
		"source_id":    IRString(p.SourceID),
		"target_id":    IRString(p.TargetID),
		"link_type_id": IRString(p.LinkTypeID),
		"suspect":      IRBool(p.Suspect),
	}
}

// ScriptWorld is the read-only snapshot of one module handed to scripts.
// Built once per operation and never mutated afterwards.
type ScriptWorld struct {
	ModuleID   string             `json:"module_id"`
	ModuleName string             `json:"module_name"`
	Objects    []ObjectProjection `json:"objects"`
	Links      []LinkProjection   `json:"links"`
}

// Object looks up an object projection by id.
func (w *ScriptWorld) Object(id string) (ObjectProjection, bool) {
	for _, o := range w.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return ObjectProjection{}, false
}

// LinksOf returns links where id is the source or target, in snapshot order.
// An empty id returns every link.
func (w *ScriptWorld) LinksOf(id string) []LinkProjection {
	out := make([]LinkProjection, 0, len(w.Links))
	for _, l := range w.Links {
		if id == "" || l.SourceID == id || l.TargetID == id {
			out = append(out, l)
		}
	}
	return out
}

// TriggerContext is the hook label plus the object as it will be saved.
type TriggerContext struct {
	HookPoint HookPoint        `json:"hook_point"`
	Object    ObjectProjection `json:"object"`
}

// Value converts the context into the tagged value handed to guests.
func (c TriggerContext) Value() IRObject {
	return IRObject{
		"hook_point": IRString(c.HookPoint),
		"object":     c.Object.Value(),
	}
}

// Mutation is a buffered attribute write produced by a script.
type Mutation struct {
	ObjectID string  `json:"object_id"`
	Key      string  `json:"key"`
	Value    IRValue `json:"value"`
}

// TriggerResult is the outcome of one trigger script run.
type TriggerResult struct {
	Rejected  bool       `json:"rejected"`
	Reason    *string    `json:"reason,omitempty"`
	Mutations []Mutation `json:"mutations"`
}

// LayoutResult is the text a layout script computed. It deliberately has
// no mutations field.
type LayoutResult struct {
	Value string `json:"value"`
}

// ActionResult is the outcome of one action script run.
type ActionResult struct {
	Output    []string   `json:"output"`
	Mutations []Mutation `json:"mutations"`
}

// ChangeType labels a history row.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
	ChangeScript ChangeType = "script"
)

// HistoryEntry is one append-only audit row for an object.
type HistoryEntry struct {
	ID          int64      `json:"id"`
	ObjectID    string     `json:"object_id"`
	ModuleID    string     `json:"module_id"`
	Version     int64      `json:"version"`
	ChangeType  ChangeType `json:"change_type"`
	Heading     *string    `json:"heading,omitempty"`
	Body        *string    `json:"body,omitempty"`
	Attributes  IRObject   `json:"attributes,omitempty"`
	Fingerprint string     `json:"fingerprint"`
}

// Severity ranks a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding of a module validation.
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	ObjectID string   `json:"object_id,omitempty"`
	LinkID   string   `json:"link_id,omitempty"`
	Message  string   `json:"message"`
}
