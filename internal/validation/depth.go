package validation

import (
	"strings"

	language "github.com/protectql/depthgate/internal/language"
)

const ruleNameMaxDepth = "MaxDepth"

// introspectionPrefix marks reserved schema-metadata fields. Introspection
// fields are always exempt from depth accounting, before and regardless of
// any configured IgnoreRule.
const introspectionPrefix = "__"

// maxWalkFrames caps native recursion per branch independently of the
// configured limit. Field frames are already bounded by Limit+1 through
// pruning, but depth-neutral frames (inline fragments, fragment spreads)
// consume stack without consuming configured depth.
const maxWalkFrames = 1024

// MaxDepth validates that no operation selects fields nested deeper than
// Limit. The limit is inclusive: a selection at exactly Limit levels passes.
// Limit 0 admits only the root-level fields of each operation.
//
// Fragment spreads and inline fragments are depth-neutral: they delegate to
// their child selections at the current level. A spread whose name resolves
// to no fragment definition is skipped. A fragment revisited on the same
// branch (a spread cycle) is likewise skipped, so cyclic documents terminate.
type MaxDepth struct {
	Limit  int
	Ignore IgnoreRule
}

// Validate applies the depth rule alone, for hosts that have no use for the
// broader rule phase.
func Validate(doc *language.QueryDocument, maxDepth int, ignore IgnoreRule) []*Violation {
	return MaxDepth{Limit: maxDepth, Ignore: ignore}.Check(doc)
}

func (r MaxDepth) Name() string { return ruleNameMaxDepth }

// Check walks every operation independently and concatenates findings. A
// violation prunes its own branch only; sibling selections and remaining
// operations are still walked.
func (r MaxDepth) Check(doc *language.QueryDocument) []*Violation {
	fragments, operations := index(doc)
	var out []*Violation
	for name, op := range operations {
		w := depthWalker{
			limit:     r.Limit,
			ignore:    r.Ignore,
			fragments: fragments,
			operation: name,
			visiting:  map[string]bool{},
		}
		for _, sel := range op.SelectionSet {
			w.walk(sel, 0, 0)
		}
		out = append(out, w.violations...)
	}
	return out
}

type depthWalker struct {
	limit      int
	ignore     IgnoreRule
	fragments  map[string]*language.FragmentDefinition
	operation  string
	visiting   map[string]bool // fragment names open on the current branch
	violations []*Violation
}

// walk processes one selection node. depth counts field nesting only;
// frames counts every recursion level so that stacked depth-neutral nodes
// stay bounded too. Exceeding either bound records a violation and stops
// descending this branch.
func (w *depthWalker) walk(sel language.Selection, depth, frames int) {
	if depth > w.limit || frames > maxWalkFrames {
		w.violations = append(w.violations, violationDepthExceeded(w.operation, w.limit, sel))
		return
	}
	switch node := sel.(type) {
	case *language.Field:
		if strings.HasPrefix(node.Name, introspectionPrefix) {
			return
		}
		if w.ignore != nil && w.ignore.Ignores(node.Name) {
			return
		}
		for _, child := range node.SelectionSet {
			w.walk(child, depth+1, frames+1)
		}
	case *language.FragmentSpread:
		frag, ok := w.fragments[node.Name]
		if !ok || w.visiting[node.Name] {
			return
		}
		w.visiting[node.Name] = true
		for _, child := range frag.SelectionSet {
			w.walk(child, depth, frames+1)
		}
		delete(w.visiting, node.Name)
	case *language.InlineFragment:
		for _, child := range node.SelectionSet {
			w.walk(child, depth, frames+1)
		}
	}
}

func selectionPosition(sel language.Selection) *language.Position {
	switch node := sel.(type) {
	case *language.Field:
		return node.Position
	case *language.FragmentSpread:
		return node.Position
	case *language.InlineFragment:
		return node.Position
	}
	return nil
}
