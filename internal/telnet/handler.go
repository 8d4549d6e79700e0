package telnet

// EnableHandler is invoked after an option's status transitions to YES in
// the given direction.
type EnableHandler func(s *Stream, id OptionID, dir Direction) error

// DisableHandler is invoked before the outbound WONT/DONT confirming a
// disablement is written.
type DisableHandler func(s *Stream, id OptionID, dir Direction) error

// SubnegotiationHandler is invoked with the captured, de-escaped payload of a
// completed `IAC SB opt ... IAC SE` sequence.
type SubnegotiationHandler func(s *Stream, id OptionID, payload []byte) error

// HandlerSet is the per-option triple of optional callbacks.
type HandlerSet struct {
	OnEnable       EnableHandler
	OnDisable      DisableHandler
	OnSubnegotiate SubnegotiationHandler
}

// HandlerRegistry maps option id to its HandlerSet. It has the same
// single-writer-per-stream lifetime as the StatusTable — owned exclusively by
// its enclosing stream — so it needs no locking of its own.
type HandlerRegistry struct {
	sets map[OptionID]*HandlerSet
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{sets: make(map[OptionID]*HandlerSet)}
}

// Register installs (or replaces) the handler set for id. Any of the three
// callbacks may be nil.
func (r *HandlerRegistry) Register(id OptionID, set HandlerSet) {
	r.sets[id] = &set
}

// Unregister removes the handler set for id, if any.
func (r *HandlerRegistry) Unregister(id OptionID) {
	delete(r.sets, id)
}

func (r *HandlerRegistry) get(id OptionID) *HandlerSet {
	return r.sets[id]
}

// CompletionKind tags a HandlerCompletion so dispatch stays type-safe even though
// enablement/disablement handlers are void-returning while subnegotiation
// handlers may want to write a reply.
type CompletionKind int

const (
	CompletionEnablement CompletionKind = iota
	CompletionDisablement
	CompletionSubnegotiation
)

// HandlerCompletion tags which handler to run, for which option and
// direction. The stream executes it inline, on the reading goroutine, once
// any negotiation response that must precede it has been written; any error
// the handler returns propagates straight up through ReadSome/applyOutcome,
// not through this struct.
type HandlerCompletion struct {
	Kind CompletionKind
	Opt  OptionID
	Dir  Direction
}
