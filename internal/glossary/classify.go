package glossary

import "strings"

// Class is the variable classification of a token name.
type Class string

const (
	// ClassPrimary marks a token resolved directly from game-state context.
	ClassPrimary Class = "primary"

	// ClassTemplate marks a token assumed to reference a registered
	// template ("Grimorio" entry).
	ClassTemplate Class = "template"

	// ClassUnknown is never produced by [Classify]. A template-classified
	// name only becomes unknown at resolution time, when no template with
	// that key exists in the registry.
	ClassUnknown Class = "unknown"
)

// structuralPrefixes are the dotted-path section prefixes that classify a
// name as primary regardless of glossary membership.
var structuralPrefixes = []string{
	"npc.",
	"jugador.", "player.",
	"mundo.", "world.",
	"pueblo.", "region.",
	"edificio.", "building.",
	"session.",
}

// bareAliases are bare (non-dotted) names that classify as primary without a
// glossary lookup. Kept as a fixed list because classification precedence
// must not change when the glossary gains entries.
var bareAliases = map[string]struct{}{
	"nombre":      {},
	"raza":        {},
	"nivel":       {},
	"clase":       {},
	"char":        {},
	"mensaje":     {},
	"message":     {},
	"usermessage": {},
	"lastsummary": {},
}

// Classify decides whether a token name refers to a primary variable or a
// template. The decision is a pure function of the lowercased, trimmed name.
//
// Precedence:
//  1. A structural section prefix or a fixed bare alias → [ClassPrimary].
//  2. A glossary entry (by name or alias) whose category is not "custom"
//     → [ClassPrimary].
//  3. Otherwise the name is assumed to be a template key → [ClassTemplate].
//
// There is no syntactic way to produce [ClassUnknown]; a misspelled primary
// name falls through to the template path and resolves to "" when no
// template matches.
func Classify(name string) Class {
	n := normalize(name)

	for _, p := range structuralPrefixes {
		if strings.HasPrefix(n, p) {
			return ClassPrimary
		}
	}
	if _, ok := bareAliases[n]; ok {
		return ClassPrimary
	}

	if e, ok := Lookup(n); ok && e.Category != "custom" {
		return ClassPrimary
	}

	return ClassTemplate
}
