package validation

import (
	language "github.com/protectql/depthgate/internal/language"
)

// index builds the fragment and operation name tables for one validation
// pass. Anonymous operations are keyed under "". Duplicate names follow
// last-write-wins: upstream validation is expected to have rejected truly
// ambiguous documents already, so the indexer stays permissive instead of
// failing. A nil document yields two empty tables.
func index(doc *language.QueryDocument) (map[string]*language.FragmentDefinition, map[string]*language.OperationDefinition) {
	fragments := map[string]*language.FragmentDefinition{}
	operations := map[string]*language.OperationDefinition{}
	if doc == nil {
		return fragments, operations
	}
	for _, frag := range doc.Fragments {
		if frag == nil {
			continue
		}
		fragments[frag.Name] = frag
	}
	for _, op := range doc.Operations {
		if op == nil {
			continue
		}
		operations[op.Name] = op
	}
	return fragments, operations
}
