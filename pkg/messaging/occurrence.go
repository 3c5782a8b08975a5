// Package messaging wraps narration trees as perceivable occurrences and fans
// an event out to every observer, each with its own rendering.
package messaging

import (
	"fmt"

	"github.com/japaniel/narrator/pkg/lexica"
)

// SensoryType is the channel through which an occurrence is perceived.
type SensoryType int

const (
	Visible SensoryType = iota
	Audible
	Olfactory
	Tactile
	Taste
	Psychic
)

func (s SensoryType) String() string {
	switch s {
	case Visible:
		return "Visible"
	case Audible:
		return "Audible"
	case Olfactory:
		return "Olfactory"
	case Tactile:
		return "Tactile"
	case Taste:
		return "Taste"
	case Psychic:
		return "Psychic"
	default:
		return fmt.Sprintf("SensoryType(%d)", int(s))
	}
}

// AlwaysPerceivable is the Strength of occurrences every observer perceives.
const AlwaysPerceivable = -1

// Occurrence is one perceivable part of an event.
type Occurrence struct {
	Event    *lexica.Node
	Strength int
	Sense    SensoryType
}

// NewOccurrence wraps event.
func NewOccurrence(sense SensoryType, strength int, event *lexica.Node) *Occurrence {
	return &Occurrence{Event: event, Strength: strength, Sense: sense}
}

// NewBlankOccurrence starts an always-perceivable occurrence on a blank
// root, to be filled in with TryModify.
func NewBlankOccurrence(sense SensoryType) *Occurrence {
	return NewOccurrence(sense, AlwaysPerceivable, lexica.NewBlank())
}

// Perceivable reports whether an observer with the given threshold for this
// occurrence's sense perceives it.
func (o *Occurrence) Perceivable(threshold int) bool {
	return o.Strength == AlwaysPerceivable || o.Strength >= threshold
}

// TryModify attaches mod to the event root. See lexica.Node.TryModify.
func (o *Occurrence) TryModify(mod *lexica.Node, passthru bool) *lexica.Node {
	return o.root().TryModify(mod, passthru)
}

// TryModifyAll attaches mods in order.
func (o *Occurrence) TryModifyAll(passthru bool, mods ...*lexica.Node) []*lexica.Node {
	return o.root().TryModifyAll(passthru, mods...)
}

// TryModifyWith builds a node from its parts and attaches it.
func (o *Occurrence) TryModifyWith(t lexica.Type, role lexica.Role, phrase string, passthru bool) *lexica.Node {
	return o.root().Modify(t, role, phrase, passthru)
}

// TryModifyOccurrence attaches the event of other to this one.
func (o *Occurrence) TryModifyOccurrence(other *Occurrence, passthru bool) *lexica.Node {
	if other == nil || other.Event == nil {
		return nil
	}
	return o.TryModify(other.Event, passthru)
}

func (o *Occurrence) root() *lexica.Node {
	if o.Event == nil {
		o.Event = lexica.NewBlank()
	}
	return o.Event
}

func (o *Occurrence) String() string {
	event := "<nil>"
	if o.Event != nil {
		event = o.Event.String()
	}
	return fmt.Sprintf("%s(%d) %s", o.Sense, o.Strength, event)
}
