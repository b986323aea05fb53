package speechtotext

import "sync"

// frameQueue is an unbounded FIFO of audio frames with a single consumer.
// Push never blocks, which keeps Feed non-blocking for the session reader.
type frameQueue struct {
	mu           sync.Mutex
	frames       [][]byte
	closed       bool
	updateSignal chan struct{}
}

func newFrameQueue() *frameQueue {
	return &frameQueue{updateSignal: make(chan struct{}, 1)}
}

func (q *frameQueue) Push(frame []byte) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()
	q.signalUpdate()
	return true
}

// Pop blocks until a frame is available or the queue is closed. Frames
// still queued at close are dropped.
func (q *frameQueue) Pop() ([]byte, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		if len(q.frames) > 0 {
			frame := q.frames[0]
			q.frames[0] = nil
			q.frames = q.frames[1:]
			q.mu.Unlock()
			return frame, true
		}
		q.mu.Unlock()
		<-q.updateSignal
	}
}

func (q *frameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

func (q *frameQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.frames = nil
	q.mu.Unlock()
	q.signalUpdate()
}

func (q *frameQueue) signalUpdate() {
	select {
	case q.updateSignal <- struct{}{}:
	default:
	}
}
