package player

// LoadRequest asks the surface to load one chunk.
type LoadRequest struct {
	Token   uint64
	Index   int
	Locator string
}

// Subscription is the handle for the media events of one load.
// Closing it releases whatever the surface holds for that load; events
// already in flight are dropped by the navigator's token check.
type Subscription interface {
	Close()
}

// Surface is the single media output owned by the active session.
//
// Load must not block on I/O: the outcome is reported later as MediaReady or
// MediaFailed carrying req.Token. Seek is only issued after MediaReady.
type Surface interface {
	Load(req LoadRequest) Subscription
	Seek(seconds float64)
	Play()
	Pause()
	Stop()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Close calls f.
func (f SubscriptionFunc) Close() {
	if f != nil {
		f()
	}
}

// TransitionKind names an observable navigator transition.
type TransitionKind string

const (
	TransitionGridOpened     TransitionKind = "grid_opened"
	TransitionSessionStarted TransitionKind = "session_started"
	TransitionChunkLoading   TransitionKind = "chunk_loading"
	TransitionChunkReady     TransitionKind = "chunk_ready"
	TransitionChunkFailed    TransitionKind = "chunk_failed"
	TransitionReturnedToGrid TransitionKind = "returned_to_grid"
	TransitionClosed         TransitionKind = "closed"
)

// Transition describes a state change for observers.
type Transition struct {
	Kind    TransitionKind `json:"kind"`
	Camera  string         `json:"camera,omitempty"`
	Index   int            `json:"index"`
	Locator string         `json:"locator,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

// Observer receives navigator transitions. It is called on the navigator's
// goroutine and must not call back into the navigator.
type Observer interface {
	Observe(Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Transition)

// Observe calls f.
func (f ObserverFunc) Observe(t Transition) { f(t) }
