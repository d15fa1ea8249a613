package lint_test

import (
	"testing"

	"github.com/MrWong99/grimoire/internal/lint"
	"github.com/MrWong99/grimoire/internal/prompt"
	"github.com/MrWong99/grimoire/internal/template"
)

type fakeRegistry map[string]template.Definition

func (f fakeRegistry) Lookup(key string) (template.Definition, bool) {
	d, ok := f[key]
	return d, ok
}

func sampleContext() *prompt.RenderContext {
	return &prompt.RenderContext{
		Player:  &prompt.PlayerState{Name: "Aldric", Level: 15},
		NPC:     &prompt.NPCState{Name: "Mirella"},
		Message: "hola",
	}
}

func findIssue(issues []lint.Issue, variable string, kind lint.Kind) *lint.Issue {
	for i := range issues {
		if issues[i].Variable == variable && issues[i].Kind == kind {
			return &issues[i]
		}
	}
	return nil
}

func TestCheckTemplateClean(t *testing.T) {
	t.Parallel()

	v := lint.New(fakeRegistry{})
	issues := v.CheckTemplate("Hola {{jugador.nombre}}, dice {{npc.nombre}}: {{mensaje}}", sampleContext())
	if len(issues) != 0 {
		t.Fatalf("CheckTemplate: unexpected issues %+v", issues)
	}
}

func TestCheckTemplateUnknownWithSuggestion(t *testing.T) {
	t.Parallel()

	v := lint.New(fakeRegistry{})
	issues := v.CheckTemplate("Hola {{jugador.nombr}}", sampleContext())

	// The "jugador." prefix classifies the token as primary, but the
	// misspelled suffix has no glossary entry.
	issue := findIssue(issues, "jugador.nombr", lint.KindUnknown)
	if issue == nil {
		t.Fatalf("CheckTemplate: expected UNKNOWN for jugador.nombr, got %+v", issues)
	}
	if issue.Severity != lint.SeverityError {
		t.Fatalf("CheckTemplate: severity %q, want error", issue.Severity)
	}
	if len(issue.Suggestions) == 0 || issue.Suggestions[0] != "jugador.nombre" {
		t.Fatalf("CheckTemplate: suggestions %v, want jugador.nombre first", issue.Suggestions)
	}
}

func TestCheckTemplateUnknownTemplateToken(t *testing.T) {
	t.Parallel()

	v := lint.New(fakeRegistry{})
	issues := v.CheckTemplate("{{no_such_thing}}", nil)

	if findIssue(issues, "no_such_thing", lint.KindUnknown) == nil {
		t.Fatalf("CheckTemplate: expected UNKNOWN, got %+v", issues)
	}
}

func TestCheckTemplateCyclic(t *testing.T) {
	t.Parallel()

	reg := fakeRegistry{
		"otro": {Key: "otro", Body: "x", Kind: template.KindTemplate},
	}
	v := lint.New(reg)
	issues := v.CheckTemplate("antes {{otro}} despues", nil)

	issue := findIssue(issues, "otro", lint.KindCyclic)
	if issue == nil {
		t.Fatalf("CheckTemplate: expected CYCLIC, got %+v", issues)
	}
	if issue.Severity != lint.SeverityError {
		t.Fatalf("CheckTemplate: severity %q, want error", issue.Severity)
	}
}

func TestCheckTemplateMissingRequired(t *testing.T) {
	t.Parallel()

	v := lint.New(fakeRegistry{})
	sample := &prompt.RenderContext{} // no player section

	issues := v.CheckTemplate("Hola {{jugador.nombre}}", sample)
	if findIssue(issues, "jugador.nombre", lint.KindMissing) == nil {
		t.Fatalf("CheckTemplate: expected MISSING, got %+v", issues)
	}
}

func TestCheckTemplateEmptyWarning(t *testing.T) {
	t.Parallel()

	v := lint.New(fakeRegistry{})
	sample := sampleContext() // has player but no race

	issues := v.CheckTemplate("{{jugador.raza}}", sample)
	issue := findIssue(issues, "jugador.raza", lint.KindEmpty)
	if issue == nil {
		t.Fatalf("CheckTemplate: expected EMPTY, got %+v", issues)
	}
	if issue.Severity != lint.SeverityWarning {
		t.Fatalf("CheckTemplate: severity %q, want warning", issue.Severity)
	}
}

func TestCheckTemplateNoContextSkipsPresenceChecks(t *testing.T) {
	t.Parallel()

	v := lint.New(fakeRegistry{})
	issues := v.CheckTemplate("Hola {{jugador.nombre}} {{jugador.raza}}", nil)
	if len(issues) != 0 {
		t.Fatalf("CheckTemplate: presence checks must be skipped without a sample, got %+v", issues)
	}
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	warnOnly := []lint.Issue{{Kind: lint.KindEmpty, Severity: lint.SeverityWarning}}
	if lint.HasErrors(warnOnly) {
		t.Fatal("HasErrors: warnings alone must not gate saving")
	}

	withError := append(warnOnly, lint.Issue{Kind: lint.KindCyclic, Severity: lint.SeverityError})
	if !lint.HasErrors(withError) {
		t.Fatal("HasErrors: expected true with an error finding")
	}
}
