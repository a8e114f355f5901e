package qmeasure

/*
Notifier is a synchronous observer list. The view layer subscribes to a
model component and is called back inside the mutating operation, in the
same tick, so derived displays always read state that has already been
updated. This deliberately replaces channel-based pub/sub: delivery order
relative to the mutation matters here, and goroutine hand-off would break
it.
*/
type Notifier struct {
	nextHandle ListenerHandle
	listeners  []listenerEntry

	coalesceDepth int
	pending       bool
}

// ListenerHandle identifies a subscription for later removal.
type ListenerHandle uint64

type listenerEntry struct {
	handle ListenerHandle
	fn     func()
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers fn to be called on every notification, in
// subscription order.
func (n *Notifier) Subscribe(fn func()) ListenerHandle {
	n.nextHandle++
	n.listeners = append(n.listeners, listenerEntry{handle: n.nextHandle, fn: fn})
	return n.nextHandle
}

// Unsubscribe removes a listener. Unknown handles are ignored.
func (n *Notifier) Unsubscribe(handle ListenerHandle) {
	for i, l := range n.listeners {
		if l.handle == handle {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// Notify calls every listener synchronously. Inside a coalescing section
// the delivery is deferred and duplicates are collapsed into one.
func (n *Notifier) Notify() {
	if n.coalesceDepth > 0 {
		n.pending = true
		return
	}
	n.deliver()
}

/*
BeginCoalesce opens a section in which repeated Notify calls collapse into
a single delivery at EndCoalesce. Operations that touch several fields in
one logical mutation (a count change that also regenerates outcomes, say)
wrap themselves in a coalescing section so listeners see one consistent
update instead of two half-applied ones.
*/
func (n *Notifier) BeginCoalesce() {
	n.coalesceDepth++
}

// EndCoalesce closes the section and delivers the pending notification, if
// any. Sections nest; only the outermost EndCoalesce delivers.
func (n *Notifier) EndCoalesce() {
	if n.coalesceDepth == 0 {
		return
	}
	n.coalesceDepth--
	if n.coalesceDepth == 0 && n.pending {
		n.pending = false
		n.deliver()
	}
}

func (n *Notifier) deliver() {
	// Snapshot so a listener can unsubscribe itself mid-delivery.
	snapshot := make([]listenerEntry, len(n.listeners))
	copy(snapshot, n.listeners)
	for _, l := range snapshot {
		l.fn()
	}
}
