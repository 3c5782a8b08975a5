package messaging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/japaniel/narrator/pkg/lexica"
)

// Framing is an observer's relationship to an event.
type Framing int

const (
	FramingBystander Framing = iota
	FramingActor
	FramingTarget
)

func (f Framing) String() string {
	switch f {
	case FramingActor:
		return "Actor"
	case FramingTarget:
		return "Target"
	case FramingBystander:
		return "Bystander"
	default:
		return fmt.Sprintf("Framing(%d)", int(f))
	}
}

// Party is a named participant of an event.
type Party struct {
	ID   string
	Name string
}

// Message holds the parallel variants of one event. Empty variants fall
// back to ToOrigin.
type Message struct {
	ToActor  []*Occurrence
	ToTarget []*Occurrence
	ToOrigin []*Occurrence
}

// Cluster is one event awaiting delivery to its observers.
type Cluster struct {
	ID      uuid.UUID
	Actor   Party
	Target  Party
	Message Message
}

// NewCluster creates a cluster with a fresh ID.
func NewCluster(actor, target Party, msg Message) *Cluster {
	return &Cluster{ID: uuid.New(), Actor: actor, Target: target, Message: msg}
}

// FramingFor returns how observerID relates to the event. The actor framing
// wins when an observer is both actor and target.
func (c *Cluster) FramingFor(observerID string) Framing {
	switch {
	case observerID != "" && observerID == c.Actor.ID:
		return FramingActor
	case observerID != "" && observerID == c.Target.ID:
		return FramingTarget
	default:
		return FramingBystander
	}
}

// Occurrences returns the variant for f.
func (c *Cluster) Occurrences(f Framing) []*Occurrence {
	var occs []*Occurrence
	switch f {
	case FramingActor:
		occs = c.Message.ToActor
	case FramingTarget:
		occs = c.Message.ToTarget
	}
	if len(occs) == 0 {
		occs = c.Message.ToOrigin
	}
	return occs
}

// substitute fills the $A$ (actor) and $T$ (target) placeholders.
func (c *Cluster) substitute(text string) string {
	if !strings.Contains(text, "$") {
		return text
	}
	return strings.NewReplacer("$A$", c.Actor.Name, "$T$", c.Target.Name).Replace(text)
}

// Observer is anyone who may perceive an event.
type Observer interface {
	ObserverID() string
	LexicalContext() lexica.Context
	// PerceptionThreshold is the minimum strength the observer perceives
	// through sense, derived from distance and acuity.
	PerceptionThreshold(sense SensoryType) int
}

// Delivery is the rendered text for one observer.
type Delivery struct {
	ClusterID  uuid.UUID
	ObserverID string
	Framing    Framing
	Text       string
	Senses     []SensoryType
}

// Transport hands deliveries to observers.
type Transport interface {
	Deliver(ctx context.Context, d Delivery) error
}

// WriterTransport writes one line per delivery to W.
type WriterTransport struct {
	mu sync.Mutex
	W  io.Writer
}

func (t *WriterTransport) Deliver(_ context.Context, d Delivery) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.W, "[%s] %s\n", d.ObserverID, d.Text)
	return err
}
