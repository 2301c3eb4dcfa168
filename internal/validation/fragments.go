package validation

import (
	language "github.com/protectql/depthgate/internal/language"
)

const ruleNameKnownFragments = "KnownFragments"

// KnownFragments reports every fragment spread that references no fragment
// definition in the document. The depth rule treats such spreads as having
// no children and stays silent about them; hosts add this rule when the
// dangling reference itself should surface as an error.
type KnownFragments struct{}

func (KnownFragments) Name() string { return ruleNameKnownFragments }

func (r KnownFragments) Check(doc *language.QueryDocument) []*Violation {
	fragments, operations := index(doc)
	var out []*Violation
	for name, op := range operations {
		out = append(out, scanSpreads(op.SelectionSet, name, fragments)...)
	}
	for _, frag := range fragments {
		out = append(out, scanSpreads(frag.SelectionSet, "", fragments)...)
	}
	return out
}

// scanSpreads walks the syntactic selection tree without following spreads;
// every fragment definition is scanned once above, so referenced fragments
// need no second visit here and cycles cannot occur.
func scanSpreads(set language.SelectionSet, operation string, fragments map[string]*language.FragmentDefinition) []*Violation {
	var out []*Violation
	for _, sel := range set {
		switch node := sel.(type) {
		case *language.Field:
			out = append(out, scanSpreads(node.SelectionSet, operation, fragments)...)
		case *language.InlineFragment:
			out = append(out, scanSpreads(node.SelectionSet, operation, fragments)...)
		case *language.FragmentSpread:
			if _, ok := fragments[node.Name]; !ok {
				out = append(out, violationUnknownFragment(operation, node))
			}
		}
	}
	return out
}
