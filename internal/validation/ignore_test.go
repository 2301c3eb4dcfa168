package validation

import "testing"

func TestIgnoreRules(t *testing.T) {
	cases := []struct {
		name  string
		rule  IgnoreRule
		field string
		want  bool
	}{
		{"exact match", IgnoreExact("password"), "password", true},
		{"exact mismatch", IgnoreExact("password"), "passwords", false},
		{"pattern match", IgnorePattern(`^debug_`), "debug_trace", true},
		{"pattern mismatch", IgnorePattern(`^debug_`), "trace", false},
		{"malformed pattern never matches", IgnorePattern(`(unclosed`), "anything", false},
		{"func", IgnoreFunc(func(n string) bool { return len(n) > 3 }), "long", true},
		{"nil func", IgnoreFunc(nil), "x", false},
		{"any combines", IgnoreAny(IgnoreExact("a"), IgnoreExact("b")), "b", true},
		{"any with nil entries", IgnoreAny(nil, IgnoreExact("a")), "c", false},
		{"empty any", IgnoreAny(), "a", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rule.Ignores(tc.field); got != tc.want {
				t.Fatalf("Ignores(%q) = %v, want %v", tc.field, got, tc.want)
			}
		})
	}
}
