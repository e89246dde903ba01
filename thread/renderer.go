package thread

import (
	"context"
	"log/slog"
	"time"
)

// Renderer assembles a thread: it repeatedly builds the render descriptor from the data loaded so far, starts any fetches the descriptor still needs, and rebuilds as results arrive.
//
// Each render has its own result set. Fetches still in flight when the context is done are abandoned; whatever was pending is rendered as a loading indicator, and late results are discarded.
type Renderer struct {
	Source   Source
	WebApp   string
	MaxDepth int
	Embedder Embedder
	Logger   *slog.Logger
	// defaults to time.Now
	Clock func() time.Time
}

func NewRenderer(src Source) *Renderer {
	return &Renderer{
		Source:   src,
		WebApp:   DefaultWebApp,
		MaxDepth: DefaultMaxDepth,
		Logger:   slog.Default().With("system", "thread"),
	}
}

func (r *Renderer) builder() *Builder {
	now := time.Now()
	if r.Clock != nil {
		now = r.Clock()
	}
	return &Builder{
		WebApp:   r.WebApp,
		MaxDepth: r.MaxDepth,
		Embedder: r.Embedder,
		Now:      now,
	}
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Render runs the build/fetch loop until nothing is pending or ctx is done. Parent posts which ended up rendered are registered in filter (if not nil).
func (r *Renderer) Render(ctx context.Context, p Params, state *ReplyState, filter *SharedFilter) *Node {
	plan := r.Resolve(ctx, p, state)
	if filter != nil {
		for _, uri := range plan.Seen {
			filter.Register(uri)
		}
	}
	return plan.Root
}

// Resolve is like Render, but returns the final plan, including any requests which were still pending.
func (r *Renderer) Resolve(ctx context.Context, p Params, state *ReplyState) *Plan {
	b := r.builder()
	results := NewResults()
	started := make(map[string]bool)
	arrivals := make(chan string)
	done := make(chan struct{})
	defer close(done)

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		plan := b.Build(results, state, p)
		if !plan.Pending() {
			return plan
		}
		for _, req := range plan.Requests {
			k := req.Key()
			if started[k] {
				continue
			}
			started[k] = true
			go func(req Request) {
				req.Fetch(fetchCtx, r.Source, results)
				select {
				case arrivals <- req.Key():
				case <-done:
				}
			}(req)
		}
		select {
		case <-arrivals:
		case <-ctx.Done():
			// one last pass picks up anything which landed since the previous build; fetches cut short by ctx stay pending
			plan = b.Build(results, state, p)
			r.logger().Debug("thread render finished with fetches pending", "uri", p.URI, "pending", len(plan.Requests), "err", ctx.Err())
			return plan
		}
	}
}
