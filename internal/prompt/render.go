package prompt

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/grimoire/internal/glossary"
	"github.com/MrWong99/grimoire/internal/observe"
	"github.com/MrWong99/grimoire/internal/token"
)

// MaxPasses is the orchestrator's pass bound. It guarantees termination in
// the presence of data-introduced tokens (a resolved value that itself
// embeds {{...}}) without a formal cycle proof. The bound is part of the
// engine's contract: pathological self-referential context fields must not
// cause runaway iteration, at the cost of leaving such values partially
// unresolved.
const MaxPasses = 10

// Stats aggregates what a render call did.
type Stats struct {
	// Resolved counts token names that produced a non-empty substitution.
	Resolved int

	// EmptyReturned counts token names that degraded to "".
	EmptyReturned int

	// Errors counts advisory errors (rejected nesting).
	Errors int

	// Passes is the number of scan-and-substitute sweeps performed.
	Passes int
}

// Outcome is the result of a render call. Value is always a valid (possibly
// empty) string; Errors is advisory and never aborts a render.
type Outcome struct {
	Value     string
	FromCache bool
	Stats     Stats
	Errors    []string
}

// ResultCache memoizes rendered output keyed by template identity and a
// context fingerprint. Implemented by rendercache.Cache.
type ResultCache interface {
	Get(ctx context.Context, templateID string, rctx *RenderContext) (string, bool)
	Set(ctx context.Context, templateID string, rctx *RenderContext, value string)
}

// Renderer is the substitution orchestrator. It repeatedly scans a text for
// tokens, classifies each, dispatches to the primary resolver or the
// template expander, substitutes, and re-scans until no tokens remain, a
// pass changes nothing, or [MaxPasses] is reached.
//
// A Renderer is safe for concurrent use: rendering is pure computation and
// the injected cache serialises its own state.
type Renderer struct {
	registry Registry
	expander *Expander
	resolver Resolver
	cache    ResultCache
	metrics  *observe.Metrics
}

// Option is a functional option for [NewRenderer].
type Option func(*Renderer)

// WithCache injects a result cache consulted by [Renderer.RenderTemplate].
// Without a cache every call renders from scratch.
func WithCache(c ResultCache) Option {
	return func(r *Renderer) { r.cache = c }
}

// WithMetrics injects the metrics instance render calls record to.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Renderer) { r.metrics = m }
}

// NewRenderer creates a [Renderer] reading templates from registry.
func NewRenderer(registry Registry, opts ...Option) *Renderer {
	r := &Renderer{
		registry: registry,
		expander: NewExpander(registry),
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Render substitutes every token in text against rctx and the registry.
// It never fails: unresolved tokens become "" and the outcome carries any
// advisory errors.
func (r *Renderer) Render(ctx context.Context, text string, rctx *RenderContext) Outcome {
	ctx, span := observe.StartSpan(ctx, "prompt.Render")
	defer span.End()
	start := time.Now()

	out := r.renderText(text, rctx)

	r.record(ctx, out, time.Since(start))
	span.SetAttributes(
		attribute.Int("render.passes", out.Stats.Passes),
		attribute.Int("render.resolved", out.Stats.Resolved),
	)
	return out
}

// RenderTemplate renders the registered template templateID, consulting the
// result cache when one is configured. A TemplateOverride in rctx replaces
// templateID. A missing template renders to "" with no error, per the
// render-path policy.
func (r *Renderer) RenderTemplate(ctx context.Context, templateID string, rctx *RenderContext) Outcome {
	ctx, span := observe.StartSpan(ctx, "prompt.RenderTemplate")
	defer span.End()
	start := time.Now()

	id := templateID
	if rctx != nil && rctx.TemplateOverride != "" {
		id = rctx.TemplateOverride
	}
	span.SetAttributes(attribute.String("template.id", id))

	if r.cache != nil {
		if v, ok := r.cache.Get(ctx, id, rctx); ok {
			out := Outcome{Value: v, FromCache: true}
			r.record(ctx, out, time.Since(start))
			return out
		}
	}

	out := r.renderText("{{"+id+"}}", rctx)

	if r.cache != nil {
		r.cache.Set(ctx, id, rctx, out.Value)
	}
	r.record(ctx, out, time.Since(start))
	return out
}

// renderText is the fixpoint substitution loop shared by Render and
// RenderTemplate.
func (r *Renderer) renderText(text string, rctx *RenderContext) Outcome {
	out := Outcome{}
	current := text

	for pass := 0; pass < MaxPasses; pass++ {
		matches := token.Find(current)
		if len(matches) == 0 {
			break
		}
		out.Stats.Passes++

		next := current
		substituted := make(map[string]struct{}, len(matches))
		for _, m := range matches {
			if _, done := substituted[m.Raw]; done {
				continue
			}
			substituted[m.Raw] = struct{}{}

			var value string
			switch glossary.Classify(m.Name) {
			case glossary.ClassPrimary:
				value = r.resolver.Resolve(m.Name, rctx)
			default:
				var errs []error
				value, errs = r.expander.Expand(m.Name, rctx)
				for _, err := range errs {
					out.Errors = append(out.Errors, err.Error())
					out.Stats.Errors++
				}
			}

			if value == "" {
				out.Stats.EmptyReturned++
			} else {
				out.Stats.Resolved++
			}
			next = strings.ReplaceAll(next, m.Raw, value)
		}

		// A pass that changes nothing means every remaining token resolves
		// to its own text; iterating further cannot make progress.
		if next == current {
			break
		}
		current = next
	}

	out.Value = current
	return out
}

// record emits metrics for one completed render call.
func (r *Renderer) record(ctx context.Context, out Outcome, elapsed time.Duration) {
	r.metrics.RenderDuration.Record(ctx, elapsed.Seconds())
	if out.FromCache {
		return
	}
	r.metrics.RenderPasses.Record(ctx, int64(out.Stats.Passes))
	if out.Stats.Resolved > 0 {
		r.metrics.TokensResolved.Add(ctx, int64(out.Stats.Resolved))
	}
	if out.Stats.EmptyReturned > 0 {
		r.metrics.TokensEmpty.Add(ctx, int64(out.Stats.EmptyReturned))
	}
	if out.Stats.Errors > 0 {
		r.metrics.RenderErrors.Add(ctx, int64(out.Stats.Errors),
			metric.WithAttributes(observe.Attr("kind", "rejected_nesting")))
		for _, e := range out.Errors {
			observe.Logger(ctx).Warn("render advisory error", "err", e)
		}
	}
}
