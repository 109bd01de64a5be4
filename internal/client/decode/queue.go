package decode

// FrameQueue is the hand-off point between the decoder read loop and the
// upload dispatcher. It holds at most one pending record: when the slot is
// occupied a new record is dropped and the pending one retained. This is a
// deliberate freshness-over-completeness policy for live telemetry, the
// producer must never block on a slow uplink.
type FrameQueue struct {
	ch chan *Record
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{
		ch: make(chan *Record, 1),
	}
}

// Offer inserts the record without blocking. It reports false when the slot
// was occupied and the record was dropped.
func (q *FrameQueue) Offer(rec *Record) bool {
	select {
	case q.ch <- rec:
		return true
	default:
		return false
	}
}

// Poll removes the pending record without blocking.
func (q *FrameQueue) Poll() (*Record, bool) {
	select {
	case rec := <-q.ch:
		return rec, true
	default:
		return nil, false
	}
}
