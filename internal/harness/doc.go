// Package harness runs req1 scenarios: a YAML fixture describing a module,
// followed by content operations and assertions on the resulting state.
//
// # Scenario Format
//
//	name: suspect_propagation
//	description: "Editing a requirement makes its traces suspect"
//	backend: javascript          # or go; defaults to javascript
//	fixture:
//	  module: { name: SRS }
//	  link_types: [{ name: satisfies }]
//	  objects:
//	    - key: scope
//	      heading: Scope
//	      attributes: { owner: qa }
//	      children:
//	        - key: purpose
//	          heading: Purpose
//	  links:
//	    - { key: trace, source: purpose, target: scope, type: satisfies }
//	  scripts:
//	    - name: defaults
//	      type: trigger
//	      hook_point: pre_save
//	      source: |
//	        req1.set(context.object.id, "status", "draft");
//	steps:
//	  - op: update
//	    object: scope
//	    body: "changed"
//	  - op: resolve
//	    link: trace
//	assertions:
//	  - { type: suspect, link: trace, expect: false }
//	  - { type: level, object: purpose, expect: "1.1" }
//
// Objects, links and scripts are referred to by fixture key (scripts by
// name). Fixture scripts are installed after the content, so they govern
// the steps but not the import itself.
//
// # Step Operations
//
//   - create: new object bound to key (parent, position, heading, body, classification, attributes)
//   - update: change object (heading, body, attributes, classification, parent, move_to_root, position, reviewed)
//   - review: mark object's current content reviewed
//   - delete: remove object
//   - link: create link bound to key (source, target, type)
//   - resolve: clear a suspect link
//   - action: run action script (apply)
//   - validate: run the module validation
//
// A step may declare expect_error with an error code; the step then passes
// only when it fails with that code.
//
// # Assertion Types
//
//   - level, version, needs_review: object state
//   - attribute: object attribute value (null expect means absent or null)
//   - suspect: link state
//   - history: the object's change types in order
//   - issue: number of validation issues for a rule (optionally per object)
//   - deleted: object no longer exists
//
// # Deterministic Testing
//
// Each scenario runs against a fresh in-memory store with sequential ids,
// so the trace and final state are identical across runs and can be
// compared against golden snapshots.
package harness
