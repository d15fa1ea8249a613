// Package lint is the author-time checker for Grimoire template text.
//
// It is not part of the render path: the renderer degrades every failure to
// an empty substitution, while lint surfaces those failures as structured
// findings so the authoring surface can gate saving a template before it
// ever reaches a live render. Findings are always returned as data, never
// raised.
package lint

import (
	"fmt"

	"github.com/MrWong99/grimoire/internal/glossary"
	"github.com/MrWong99/grimoire/internal/prompt"
	"github.com/MrWong99/grimoire/internal/token"
)

// Kind classifies a validation finding.
type Kind string

const (
	// KindUnknown marks a token absent from the glossary that matches no
	// registered template either.
	KindUnknown Kind = "UNKNOWN"

	// KindMissing marks a glossary-required token the supplied sample
	// context does not provide.
	KindMissing Kind = "MISSING"

	// KindEmpty marks a token that resolves to the empty string against the
	// supplied sample context. Warning-only: empty is a legal render result.
	KindEmpty Kind = "EMPTY"

	// KindCyclic marks a template body referencing another template —
	// invalid nesting under the registry's cycle-prevention rule.
	KindCyclic Kind = "CYCLIC"
)

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	// Variable is the offending token name.
	Variable string

	// Kind classifies the finding.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Severity grades the finding.
	Severity Severity

	// Suggestions lists likely intended names for misspelled tokens,
	// best first.
	Suggestions []string
}

// Validator lints template text against the glossary and, optionally, a
// template registry and a sample context.
//
// A Validator is read-only after construction and safe for concurrent use.
type Validator struct {
	registry prompt.Registry
	resolver prompt.Resolver
}

// New creates a [Validator]. registry may be nil; without one, every
// template-classified token is reported as UNKNOWN rather than CYCLIC.
func New(registry prompt.Registry) *Validator {
	return &Validator{registry: registry}
}

// CheckTemplate lints text as a template body. sample may be nil; the
// MISSING and EMPTY checks only run when a sample context is supplied.
//
// Findings, by token class:
//   - Template-classified tokens that exist in the registry → CYCLIC error
//     (a body may reference only primary variables).
//   - Template-classified tokens with no registry match → UNKNOWN error,
//     with typo suggestions from the glossary.
//   - Primary-classified tokens absent from the glossary (structural prefix
//     with an unrecognised suffix) → UNKNOWN error.
//   - Glossary-required tokens resolving to "" in sample → MISSING error.
//   - Other tokens resolving to "" in sample → EMPTY warning.
func (v *Validator) CheckTemplate(text string, sample *prompt.RenderContext) []Issue {
	var issues []Issue

	for _, name := range token.Names(text) {
		switch glossary.Classify(name) {
		case glossary.ClassPrimary:
			issues = append(issues, v.checkPrimary(name, sample)...)
		default:
			issues = append(issues, v.checkTemplateToken(name)...)
		}
	}

	return issues
}

// checkPrimary lints one primary-classified token.
func (v *Validator) checkPrimary(name string, sample *prompt.RenderContext) []Issue {
	entry, known := glossary.Lookup(name)
	if !known {
		return []Issue{{
			Variable:    name,
			Kind:        KindUnknown,
			Message:     fmt.Sprintf("variable %q is not in the glossary", name),
			Severity:    SeverityError,
			Suggestions: suggestions(name),
		}}
	}

	if sample == nil {
		return nil
	}

	if v.resolver.Resolve(name, sample) != "" {
		return nil
	}
	if entry.Required {
		return []Issue{{
			Variable: name,
			Kind:     KindMissing,
			Message:  fmt.Sprintf("required variable %q is missing from the sample context", name),
			Severity: SeverityError,
		}}
	}
	return []Issue{{
		Variable: name,
		Kind:     KindEmpty,
		Message:  fmt.Sprintf("variable %q resolves to an empty string for the sample context", name),
		Severity: SeverityWarning,
	}}
}

// checkTemplateToken lints one template-classified token found inside a
// template body.
func (v *Validator) checkTemplateToken(name string) []Issue {
	if v.registry != nil {
		if _, ok := v.registry.Lookup(name); ok {
			return []Issue{{
				Variable: name,
				Kind:     KindCyclic,
				Message:  fmt.Sprintf("template body must not reference template %q; templates may reference only primary variables", name),
				Severity: SeverityError,
			}}
		}
	}
	return []Issue{{
		Variable:    name,
		Kind:        KindUnknown,
		Message:     fmt.Sprintf("%q matches no glossary variable and no registered template", name),
		Severity:    SeverityError,
		Suggestions: suggestions(name),
	}}
}

// suggestions flattens glossary.Suggest into the plain name list carried on
// an [Issue].
func suggestions(name string) []string {
	sugg := glossary.Suggest(name)
	if len(sugg) == 0 {
		return nil
	}
	names := make([]string, 0, len(sugg))
	for _, s := range sugg {
		names = append(names, s.Name)
	}
	return names
}

// HasErrors reports whether issues contains at least one error-severity
// finding. Authoring surfaces use it to gate saving.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
