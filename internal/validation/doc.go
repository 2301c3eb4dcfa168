// Package validation implements the pre-execution validation phase for
// GraphQL query documents, centered on a structural depth limit.
//
// # Model
//
// A query document is validated by a sequence of rules (see Rule and Run).
// Rules are pure functions over the parsed AST: they never mutate the
// document, never fail, and report findings as collected Violation values.
// The host decides what to do with the findings; the usual contract is that
// any violation aborts execution of the offending request.
//
// Each rule call is self-contained. The fragment and operation name tables
// are rebuilt per call (last definition wins on duplicate names), nothing is
// cached across calls, and no package state is shared, so rules are safe to
// run concurrently on distinct documents as long as the inputs are treated
// as read-only.
//
// # Depth accounting
//
// MaxDepth walks each operation's selection tree depth-first. Only fields
// contribute depth: a field's children are walked one level deeper than the
// field itself, with the operation's root selections at level 0. Fragment
// spreads and inline fragments delegate to their child selections at the
// current level, so any chain of fragment indirection produces the same
// outcome as the equivalent inlined document.
//
// The limit is inclusive. The first node walked past the limit produces one
// violation for its operation and prunes its own branch; sibling branches
// and the remaining operations are still walked, so a single call reports
// every violating branch in the document.
//
// Two classes of field are exempt from depth accounting and are never
// descended into: introspection fields (names with the reserved "__"
// prefix), checked first and unconditionally, and fields matched by the
// configured IgnoreRule.
//
// # Degraded inputs
//
// Anomalies degrade to no-ops rather than errors so that validation always
// completes: a nil document yields no violations, a fragment spread with no
// matching definition contributes no children, a fragment revisited on its
// own branch is skipped (cyclic documents terminate), and an ignore pattern
// that fails to compile exempts nothing.
package validation
