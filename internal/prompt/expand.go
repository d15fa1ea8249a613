package prompt

import (
	"strings"

	"github.com/MrWong99/grimoire/internal/glossary"
	"github.com/MrWong99/grimoire/internal/template"
	"github.com/MrWong99/grimoire/internal/token"
)

// Registry is the read view of the template store the render path uses.
// Implementations must be safe for concurrent use and must never let a
// reader observe a partially updated body.
type Registry interface {
	// Lookup returns the definition for key. The second return is false
	// when no template with that key is registered.
	Lookup(key string) (template.Definition, bool)
}

// Expander expands template tokens by substituting the primary variables in
// the template's body.
//
// Cycle prevention is single-level: a body that references another template
// is rejected outright, so no template can transitively reach itself through
// the registry. Cycles that only manifest after primary substitution (data
// reintroducing a template token) are not detected here; the orchestrator's
// pass bound terminates them.
type Expander struct {
	registry Registry
	resolver Resolver
}

// NewExpander creates an [Expander] reading from registry.
func NewExpander(registry Registry) *Expander {
	return &Expander{registry: registry}
}

// Expand resolves the template token key against the registry and rctx.
//
// A missing key, or an entry whose kind is not "template", expands to ""
// with no error — an unknown token is not a failure on the render path. A
// body referencing a nested template expands to "" plus the structured
// nesting error. Otherwise every primary token in the body is substituted
// and the result returned.
func (e *Expander) Expand(key string, rctx *RenderContext) (string, []error) {
	def, ok := e.registry.Lookup(key)
	if !ok || def.Kind != template.KindTemplate {
		return "", nil
	}

	// Registration already validated the body; re-check here so a corrupted
	// or legacy store entry cannot smuggle nesting into the render path.
	if err := template.ValidateBody(def.Key, def.Body); err != nil {
		return "", []error{err}
	}

	out := def.Body
	for _, m := range token.Find(def.Body) {
		if glossary.Classify(m.Name) != glossary.ClassPrimary {
			continue
		}
		out = strings.ReplaceAll(out, m.Raw, e.resolver.Resolve(m.Name, rctx))
	}
	return out, nil
}
