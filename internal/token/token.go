// Package token implements the `{{name}}` placeholder syntax used throughout
// Grimoire prompt text.
//
// A token is `{{` optional-whitespace name optional-whitespace `}}` where
// name matches [A-Za-z0-9_.-]+. There is no nested-brace syntax and no
// escaping mechanism — a literal `{{` cannot be emitted by prompt authors.
package token

import "regexp"

// pattern matches a single token occurrence. Group 1 captures the trimmed
// variable name.
var pattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Match is one token occurrence found in a text.
type Match struct {
	// Raw is the full matched text including braces and any inner
	// whitespace, e.g. "{{ jugador.nombre }}". Substitution replaces Raw
	// literally.
	Raw string

	// Name is the trimmed variable name, e.g. "jugador.nombre". Identity is
	// the raw name string; dotted paths are not parsed into structure here.
	Name string
}

// Find returns every token occurrence in text, in order of appearance.
// Overlapping occurrences are impossible given the syntax. Returns nil when
// text contains no tokens.
func Find(text string) []Match {
	idx := pattern.FindAllStringSubmatch(text, -1)
	if idx == nil {
		return nil
	}
	matches := make([]Match, 0, len(idx))
	for _, m := range idx {
		matches = append(matches, Match{Raw: m[0], Name: m[1]})
	}
	return matches
}

// Contains reports whether text contains at least one token.
func Contains(text string) bool {
	return pattern.MatchString(text)
}

// Names returns the deduplicated token names found in text, preserving first
// appearance order.
func Names(text string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range Find(text) {
		if _, ok := seen[m.Name]; ok {
			continue
		}
		seen[m.Name] = struct{}{}
		names = append(names, m.Name)
	}
	return names
}
