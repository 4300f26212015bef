package integrity

import "github.com/roach88/req1/internal/ir"

// SuspectLinks returns the ids of links that must turn suspect after
// objectID's content fingerprint became newFP: links touching the object,
// not already suspect, whose stored fingerprint for the object's side
// differs from newFP. Already suspect links are never revisited.
func SuspectLinks(links []ir.Link, objectID, newFP string) []string {
	ids := []string{}
	for _, l := range links {
		if l.Suspect {
			continue
		}
		stale := (l.SourceID == objectID && l.SourceFingerprint != newFP) ||
			(l.TargetID == objectID && l.TargetFingerprint != newFP)
		if stale {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// Resolve returns the link with both current endpoint fingerprints stored
// as the new baseline and suspect cleared. Also used to capture the
// baseline when a link is created.
func Resolve(link ir.Link, sourceFP, targetFP string) ir.Link {
	link.SourceFingerprint = sourceFP
	link.TargetFingerprint = targetFP
	link.Suspect = false
	return link
}

// Consistent reports whether the link honours its invariant: a link that
// is not suspect stores the current fingerprints of both endpoints.
func Consistent(link ir.Link, sourceFP, targetFP string) bool {
	if link.Suspect {
		return true
	}
	return link.SourceFingerprint == sourceFP && link.TargetFingerprint == targetFP
}
