package prompt_test

import (
	"context"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/grimoire/internal/observe"
	"github.com/MrWong99/grimoire/internal/prompt"
	"github.com/MrWong99/grimoire/internal/template"
)

// fakeRegistry is a prompt.Registry over a plain map. Unlike the real
// stores it performs no registration-time validation, which lets tests
// exercise the expander's defence-in-depth recheck.
type fakeRegistry map[string]template.Definition

func (f fakeRegistry) Lookup(key string) (template.Definition, bool) {
	d, ok := f[key]
	return d, ok
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newTestRenderer(t *testing.T, reg prompt.Registry, opts ...prompt.Option) *prompt.Renderer {
	t.Helper()
	opts = append([]prompt.Option{prompt.WithMetrics(testMetrics(t))}, opts...)
	return prompt.NewRenderer(reg, opts...)
}

func def(key, body string) template.Definition {
	return template.Definition{Key: key, Body: body, Kind: template.KindTemplate}
}

func TestRenderIdempotence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRenderer(t, fakeRegistry{})

	t.Run("token-free text is unchanged", func(t *testing.T) {
		t.Parallel()
		const text = "Una noche tranquila en la posada."
		out := r.Render(ctx, text, fullContext())
		if out.Value != text {
			t.Fatalf("Render: %q, want unchanged input", out.Value)
		}
		if out.Stats.Passes != 0 {
			t.Fatalf("Render: %d passes over token-free text, want 0", out.Stats.Passes)
		}
	})

	t.Run("re-rendering resolved output is a no-op", func(t *testing.T) {
		t.Parallel()
		first := r.Render(ctx, "Hola {{jugador.nombre}}", fullContext())
		second := r.Render(ctx, first.Value, fullContext())
		if second.Value != first.Value {
			t.Fatalf("Render: re-render changed %q to %q", first.Value, second.Value)
		}
	})
}

func TestRenderPrimarySubstitution(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRenderer(t, fakeRegistry{})

	out := r.Render(ctx, "Hola {{jugador.nombre}}", fullContext())
	if out.Value != "Hola Aldric" {
		t.Fatalf("Render: %q, want %q", out.Value, "Hola Aldric")
	}
	if out.Stats.Resolved != 1 {
		t.Fatalf("Render: resolved=%d, want 1", out.Stats.Resolved)
	}
}

func TestRenderTemplateExpansion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := fakeRegistry{
		"saludo": def("saludo", "Saludos, {{jugador.nombre}}, nivel {{jugador.nivel}}"),
	}
	r := newTestRenderer(t, reg)

	out := r.Render(ctx, "{{saludo}}", fullContext())
	if out.Value != "Saludos, Aldric, nivel 15" {
		t.Fatalf("Render: %q", out.Value)
	}
	if strings.Contains(out.Value, "{{") {
		t.Fatalf("Render: residual tokens in %q", out.Value)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("Render: unexpected errors %v", out.Errors)
	}
}

func TestRenderNestingRejection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// Both keys registered, a's body references b — rejected at expansion
	// regardless of context.
	reg := fakeRegistry{
		"a": def("a", "{{b}}"),
		"b": def("b", "texto inocente"),
	}
	r := newTestRenderer(t, reg)

	for _, rctx := range []*prompt.RenderContext{fullContext(), {}, nil} {
		out := r.Render(ctx, "{{a}}", rctx)
		if out.Value != "" {
			t.Fatalf("Render: %q, want \"\"", out.Value)
		}
		if len(out.Errors) == 0 {
			t.Fatal("Render: expected a nesting-rejection error")
		}
		if !strings.Contains(out.Errors[0], `"b"`) {
			t.Fatalf("Render: error %q does not name the nested key", out.Errors[0])
		}
	}
}

func TestRenderUnknownTokenSafety(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRenderer(t, fakeRegistry{})

	for _, rctx := range []*prompt.RenderContext{fullContext(), {}, nil} {
		out := r.Render(ctx, "antes {{no_such_var}} despues", rctx)
		if out.Value != "antes  despues" {
			t.Fatalf("Render: %q, want unknown token replaced by \"\"", out.Value)
		}
		if len(out.Errors) != 0 {
			t.Fatalf("Render: unknown token must not error, got %v", out.Errors)
		}
		if out.Stats.EmptyReturned != 1 {
			t.Fatalf("Render: emptyReturned=%d, want 1", out.Stats.EmptyReturned)
		}
	}
}

func TestRenderNonTemplateKindIsNonMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := fakeRegistry{
		"nota": {Key: "nota", Body: "cuerpo", Kind: "note"},
	}
	r := newTestRenderer(t, reg)

	out := r.Render(ctx, "{{nota}}", fullContext())
	if out.Value != "" {
		t.Fatalf("Render: %q, want \"\" for non-template kind", out.Value)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("Render: unexpected errors %v", out.Errors)
	}
}

func TestRenderDeferredExpansion(t *testing.T) {
	t.Parallel()

	// A resolved primary value embeds further tokens; the next pass picks
	// them up.
	ctx := context.Background()
	r := newTestRenderer(t, fakeRegistry{})
	rctx := fullContext()
	rctx.NPC.Description = "sirve en {{edificio.nombre}}"

	out := r.Render(ctx, "{{npc.descripcion}}", rctx)
	if out.Value != "sirve en La Posada del Cuervo" {
		t.Fatalf("Render: %q", out.Value)
	}
	if out.Stats.Passes != 2 {
		t.Fatalf("Render: passes=%d, want 2", out.Stats.Passes)
	}
}

func TestRenderBoundedIteration(t *testing.T) {
	t.Parallel()

	// Self-referential context data: the value of npc.descripcion embeds
	// its own token. The loop must stop at the pass bound with the value
	// possibly partially unresolved.
	ctx := context.Background()
	r := newTestRenderer(t, fakeRegistry{})
	rctx := fullContext()
	rctx.NPC.Description = "bucle {{npc.descripcion}}"

	out := r.Render(ctx, "{{npc.descripcion}}", rctx)
	if out.Stats.Passes != prompt.MaxPasses {
		t.Fatalf("Render: passes=%d, want the bound %d", out.Stats.Passes, prompt.MaxPasses)
	}
	if !strings.HasPrefix(out.Value, "bucle ") {
		t.Fatalf("Render: %q", out.Value)
	}
}

func TestRenderAgainstMemStore(t *testing.T) {
	t.Parallel()

	// End to end with the real registry implementation.
	ctx := context.Background()
	store := template.NewMemStore()
	if err := store.Create(ctx, template.Definition{
		Key:  "escena",
		Body: "{{npc.nombre}} en {{edificio.nombre}}. {{mundo.rumores}}",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	r := newTestRenderer(t, store)

	out := r.Render(ctx, "{{escena}}", fullContext())
	want := "Mirella en La Posada del Cuervo. - el rey ha muerto\n- dragones al norte"
	if out.Value != want {
		t.Fatalf("Render: %q, want %q", out.Value, want)
	}
}

// stubCache is a minimal prompt.ResultCache recording calls.
type stubCache struct {
	store map[string]string
	hits  int
	sets  int
}

func (s *stubCache) Get(_ context.Context, id string, rctx *prompt.RenderContext) (string, bool) {
	v, ok := s.store[id]
	if ok {
		s.hits++
	}
	return v, ok
}

func (s *stubCache) Set(_ context.Context, id string, rctx *prompt.RenderContext, value string) {
	s.sets++
	s.store[id] = value
}

func TestRenderTemplateUsesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := fakeRegistry{"saludo": def("saludo", "Hola {{jugador.nombre}}")}
	cache := &stubCache{store: map[string]string{}}
	r := newTestRenderer(t, reg, prompt.WithCache(cache))

	first := r.RenderTemplate(ctx, "saludo", fullContext())
	if first.FromCache {
		t.Fatal("RenderTemplate: first call must not come from cache")
	}
	if first.Value != "Hola Aldric" {
		t.Fatalf("RenderTemplate: %q", first.Value)
	}

	second := r.RenderTemplate(ctx, "saludo", fullContext())
	if !second.FromCache {
		t.Fatal("RenderTemplate: second call must come from cache")
	}
	if second.Value != first.Value {
		t.Fatalf("RenderTemplate: cached %q != rendered %q", second.Value, first.Value)
	}
	if cache.sets != 1 || cache.hits != 1 {
		t.Fatalf("cache calls: sets=%d hits=%d, want 1/1", cache.sets, cache.hits)
	}
}

func TestRenderTemplateOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := fakeRegistry{
		"saludo":       def("saludo", "Hola"),
		"saludo.noble": def("saludo.noble", "Sea bienvenido, {{jugador.nombre}}"),
	}
	r := newTestRenderer(t, reg)

	rctx := fullContext()
	rctx.TemplateOverride = "saludo.noble"
	out := r.RenderTemplate(ctx, "saludo", rctx)
	if out.Value != "Sea bienvenido, Aldric" {
		t.Fatalf("RenderTemplate: %q, want override to win", out.Value)
	}
}

func TestRenderTemplateMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRenderer(t, fakeRegistry{})

	out := r.RenderTemplate(ctx, "no_such_template", fullContext())
	if out.Value != "" {
		t.Fatalf("RenderTemplate: %q, want \"\"", out.Value)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("RenderTemplate: missing template must not error, got %v", out.Errors)
	}
}
