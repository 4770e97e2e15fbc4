package admission

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

type Decision int

const (
	Allow Decision = iota
	RateLimited
	Denied
	Error
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RateLimited:
		return "rate_limited"
	case Denied:
		return "denied"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// HTTPStatus is the refusal status written before the handshake.
func (d Decision) HTTPStatus() int {
	switch d {
	case Allow:
		return http.StatusSwitchingProtocols
	case RateLimited:
		return http.StatusTooManyRequests
	case Denied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type Gate interface {
	Decide(ctx context.Context, r *http.Request) (Decision, error)
}

// Releaser is implemented by gates that reserve a slot on Allow.
type Releaser interface {
	Release(r *http.Request)
}

type GateFunc func(ctx context.Context, r *http.Request) (Decision, error)

func (f GateFunc) Decide(ctx context.Context, r *http.Request) (Decision, error) {
	return f(ctx, r)
}

// Evaluate runs g against r and folds errors and unknown decisions into Error.
// A nil gate allows everything.
func Evaluate(ctx context.Context, g Gate, r *http.Request) (Decision, error) {
	if g == nil {
		return Allow, nil
	}

	decision, err := g.Decide(ctx, r)
	if err != nil {
		return Error, err
	}

	switch decision {
	case Allow, RateLimited, Denied, Error:
		return decision, nil
	default:
		return Error, fmt.Errorf("gate returned unknown %s", decision)
	}
}

// Release frees whatever g reserved for r. Safe on gates without reservations.
func Release(g Gate, r *http.Request) {
	if rel, ok := g.(Releaser); ok {
		rel.Release(r)
	}
}

// Chain evaluates gates in order; the first non-Allow decision wins.
type Chain []Gate

func (c Chain) Decide(ctx context.Context, r *http.Request) (Decision, error) {
	for i, g := range c {
		decision, err := Evaluate(ctx, g, r)
		if decision == Allow {
			continue
		}

		for _, passed := range c[:i] {
			Release(passed, r)
		}
		if err != nil {
			return Error, fmt.Errorf("admission gate %d: %w", i, err)
		}
		slog.DebugContext(ctx, "Admission rejected", "gate", fmt.Sprintf("%T", g), "decision", decision.String())
		return decision, nil
	}
	return Allow, nil
}

func (c Chain) Release(r *http.Request) {
	for _, g := range c {
		Release(g, r)
	}
}
