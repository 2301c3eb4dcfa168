package validation

import "regexp"

// IgnoreRule decides whether a field name is exempt from depth accounting.
// An ignored field contributes no depth and is never descended into. A nil
// IgnoreRule ignores nothing.
type IgnoreRule interface {
	Ignores(fieldName string) bool
}

// IgnoreExact exempts fields whose name equals name.
func IgnoreExact(name string) IgnoreRule { return ignoreExact(name) }

type ignoreExact string

func (r ignoreExact) Ignores(fieldName string) bool { return string(r) == fieldName }

// IgnorePattern exempts fields whose name matches the regular expression
// expr. An expression that does not compile exempts nothing: a malformed
// configuration must not widen what the depth limit admits.
func IgnorePattern(expr string) IgnoreRule {
	re, err := regexp.Compile(expr)
	if err != nil {
		return ignorePattern{}
	}
	return ignorePattern{re: re}
}

type ignorePattern struct {
	re *regexp.Regexp
}

func (r ignorePattern) Ignores(fieldName string) bool {
	return r.re != nil && r.re.MatchString(fieldName)
}

// IgnoreFunc adapts a predicate to an IgnoreRule.
type IgnoreFunc func(fieldName string) bool

func (f IgnoreFunc) Ignores(fieldName string) bool { return f != nil && f(fieldName) }

// IgnoreAny combines rules; a field is exempt when any rule exempts it.
// Nil entries are skipped. With no effective rules it ignores nothing.
func IgnoreAny(rules ...IgnoreRule) IgnoreRule { return ignoreAny(rules) }

type ignoreAny []IgnoreRule

func (rs ignoreAny) Ignores(fieldName string) bool {
	for _, r := range rs {
		if r != nil && r.Ignores(fieldName) {
			return true
		}
	}
	return false
}
