package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/japaniel/narrator/pkg/narration"
	"golang.org/x/sync/errgroup"
)

// Narrator renders a tree for one lexical context. *narration.Renderer
// implements it.
type Narrator interface {
	Describe(n *lexica.Node, ctx lexica.Context) (string, error)
}

// DefaultConcurrency bounds parallel renders per cluster.
const DefaultConcurrency = 8

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithConcurrency sets how many observers are rendered at once.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// WithDispatchLogger sets the dispatcher's logger.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// Dispatcher renders clusters per observer and hands the text to a
// Transport.
type Dispatcher struct {
	narrator  Narrator
	transport Transport
	limit     int
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(n Narrator, t Transport, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		narrator:  n,
		transport: t,
		limit:     DefaultConcurrency,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Prepare renders the cluster for one observer. It reports false when the
// observer perceives none of the occurrences in its framing.
func (d *Dispatcher) Prepare(c *Cluster, obs Observer) (Delivery, bool) {
	framing := c.FramingFor(obs.ObserverID())
	lc := obs.LexicalContext()

	var texts []string
	var senses []SensoryType
	for _, occ := range c.Occurrences(framing) {
		if occ == nil || occ.Event == nil || !occ.Perceivable(obs.PerceptionThreshold(occ.Sense)) {
			continue
		}
		text := d.render(occ, obs, lc)
		if text == "" {
			continue
		}
		texts = append(texts, c.substitute(text))
		senses = appendSense(senses, occ.Sense)
	}
	if len(texts) == 0 {
		return Delivery{}, false
	}
	return Delivery{
		ClusterID:  c.ID,
		ObserverID: obs.ObserverID(),
		Framing:    framing,
		Text:       strings.Join(texts, " "),
		Senses:     senses,
	}, true
}

// render describes one occurrence, falling back to its literal phrases when
// the narrator fails.
func (d *Dispatcher) render(occ *Occurrence, obs Observer, lc lexica.Context) (text string) {
	fallback := func(err error) string {
		d.logger.Warn("render failed, using plain text",
			"observer", obs.ObserverID(),
			"sense", occ.Sense.String(),
			"error", err,
		)
		return narration.Plain(occ.Event, lc.Normalization, lc.SentenceType)
	}
	defer func() {
		if r := recover(); r != nil {
			text = fallback(fmt.Errorf("panic: %v", r))
		}
	}()

	out, err := d.narrator.Describe(occ.Event, lc)
	if err != nil {
		return fallback(err)
	}
	return out
}

func appendSense(senses []SensoryType, s SensoryType) []SensoryType {
	for _, have := range senses {
		if have == s {
			return senses
		}
	}
	return append(senses, s)
}

// Deliver renders c for every observer in parallel and delivers the
// results. A failure for one observer never stops the others; transport
// errors are joined and returned once every observer has been handled. A
// cancelled ctx is reported once, not per observer.
func (d *Dispatcher) Deliver(ctx context.Context, c *Cluster, observers []Observer) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(d.limit)
	for _, obs := range observers {
		if obs == nil {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			delivery, ok := d.Prepare(c, obs)
			if !ok {
				return nil
			}
			if err := d.transport.Deliver(ctx, delivery); err != nil {
				d.logger.Warn("delivery failed", "observer", obs.ObserverID(), "cluster", c.ID.String(), "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("deliver to %s: %w", obs.ObserverID(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
