// Package events carries progress notifications out of the packing engine.
//
// The engine never prints. Observers receive a stable set of event kinds and
// decide how to surface them (console lines, structured logs, test recorders).
package events

import (
	"sync"

	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

// Kind is the stable name of a notification
type Kind string

const (
	Action        Kind = "action"
	ActionStart   Kind = "action_start"
	ActionSkip    Kind = "action_skip"
	PackStart     Kind = "pack_start"
	PackEnd       Kind = "pack_end"
	PackSkip      Kind = "pack_skip"
	DuplicateFile Kind = "duplicate_file"
	Warning       Kind = "warning"
)

// Duplicate describes a file selected twice for the same destination path
type Duplicate struct {
	Name      string
	Source    string
	Size      int64
	NewSource string
	NewSize   int64
}

// Event is one notification
type Event struct {
	Kind      Kind
	Package   string
	Action    *types.ActionDef
	Duplicate *Duplicate
	Message   string
}

// Observer receives notifications
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// Notify implements Observer
func (f ObserverFunc) Notify(e Event) { f(e) }

// Discard drops every notification
var Discard Observer = ObserverFunc(func(Event) {})

// Multi fans a notification out to several observers in order
type Multi []Observer

// Notify implements Observer
func (m Multi) Notify(e Event) {
	for _, o := range m {
		if o != nil {
			o.Notify(e)
		}
	}
}

// Recorder keeps every notification it receives
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Observer. A nil Recorder drops notifications.
func (r *Recorder) Notify(e Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded notifications
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns the recorded notifications of one kind
func (r *Recorder) OfKind(kind Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// LogObserver writes notifications to a zerolog logger
type LogObserver struct {
	Logger zerolog.Logger
}

// Notify implements Observer
func (l LogObserver) Notify(e Event) {
	var ev *zerolog.Event
	switch e.Kind {
	case Warning, DuplicateFile:
		ev = l.Logger.Warn()
	default:
		ev = l.Logger.Debug()
	}

	ev = ev.Str("event", string(e.Kind)).Str("package", e.Package)
	if e.Action != nil {
		ev = ev.Str("actionType", string(e.Action.Type)).Str("description", e.Action.Description)
	}
	if d := e.Duplicate; d != nil {
		ev = ev.Str("name", d.Name).
			Str("source", d.Source).
			Int64("size", d.Size).
			Str("newSource", d.NewSource).
			Int64("newSize", d.NewSize)
	}
	if e.Message != "" {
		ev = ev.Str("detail", e.Message)
	}
	ev.Msg("Packer event")
}
