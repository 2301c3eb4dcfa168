package validation

import (
	language "github.com/protectql/depthgate/internal/language"
)

// Rule is one pluggable check within the validation phase. Rules read the
// document and report findings; they never mutate the AST and never fail.
type Rule interface {
	Name() string
	Check(doc *language.QueryDocument) []*Violation
}

// Run applies rules in order against doc and concatenates their findings.
// A nil document is valid input and yields no violations.
func Run(doc *language.QueryDocument, rules ...Rule) []*Violation {
	var out []*Violation
	for _, rule := range rules {
		out = append(out, rule.Check(doc)...)
	}
	return out
}
