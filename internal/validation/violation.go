package validation

import (
	"fmt"

	language "github.com/protectql/depthgate/internal/language"
)

// Violation is one validation finding. Violations are collected values,
// never raised as errors from within a walk; a rule that finds nothing
// returns an empty list.
type Violation struct {
	// Rule names the rule that produced the finding.
	Rule string `json:"rule"`
	// Operation is the owning operation's name, "" for anonymous operations
	// or findings outside any operation.
	Operation string `json:"operation"`
	// MaxDepth is the configured limit at the time of the finding. Zero for
	// rules that carry no depth limit.
	MaxDepth int    `json:"maxDepth,omitempty"`
	Message  string `json:"message"`
	// Node is the selection that triggered the finding, kept for hosts that
	// inspect the AST directly.
	Node language.Selection `json:"-"`
	// Position locates Node in the source. May be nil when the parser
	// supplied no position.
	Position *language.Position `json:"-"`
}

type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		line := "- " + v.Message
		if v.Position != nil {
			name := ""
			if v.Position.Src != nil {
				name = v.Position.Src.Name
			}
			line += fmt.Sprintf(" %s:%d:%d", name, v.Position.Line, v.Position.Column)
		}
		msg += line + "\n"
	}
	return msg
}

func violationDepthExceeded(operation string, maxDepth int, node language.Selection) *Violation {
	return &Violation{
		Rule:      ruleNameMaxDepth,
		Operation: operation,
		MaxDepth:  maxDepth,
		Message:   fmt.Sprintf("Operation '%s' exceeds maximum operation depth of %d", operation, maxDepth),
		Node:      node,
		Position:  selectionPosition(node),
	}
}

func violationUnknownFragment(operation string, spread *language.FragmentSpread) *Violation {
	return &Violation{
		Rule:      ruleNameKnownFragments,
		Operation: operation,
		Message:   fmt.Sprintf("Unknown fragment '%s'", spread.Name),
		Node:      spread,
		Position:  spread.Position,
	}
}
