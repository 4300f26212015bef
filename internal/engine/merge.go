package engine

import "github.com/roach88/req1/internal/ir"

type mutationKey struct {
	objectID string
	key      string
}

// MergeMutations unions mutation batches in order. A later write to the
// same (object, key) replaces the earlier value but keeps the position of
// the first write, so output order is stable.
func MergeMutations(batches ...[]ir.Mutation) []ir.Mutation {
	merged := []ir.Mutation{}
	index := make(map[mutationKey]int)
	for _, batch := range batches {
		for _, m := range batch {
			k := mutationKey{objectID: m.ObjectID, key: m.Key}
			if i, ok := index[k]; ok {
				merged[i].Value = m.Value
				continue
			}
			index[k] = len(merged)
			merged = append(merged, m)
		}
	}
	return merged
}
