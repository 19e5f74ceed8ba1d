package texttospeech

import "sync"

// playbackQueue holds synthesized audio in arrival order. Segment marks sit
// between the chunks of consecutive segments and the queue ends with an
// explicit all-audio-loaded marker.
type playbackQueue struct {
	mu sync.Mutex

	items    []queueItem
	playhead int

	allAudioLoaded bool
	stopped        bool

	updateSignal chan struct{}
}

type queueItem struct {
	Audio []byte
	// Mark is the text of the segment whose audio ends here.
	Mark string
}

func (i queueItem) isMark() bool { return i.Audio == nil }

func newPlaybackQueue() *playbackQueue {
	return &playbackQueue{updateSignal: make(chan struct{}, 1)}
}

func (q *playbackQueue) AddAudio(audio []byte) {
	if len(audio) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, queueItem{Audio: audio})
	q.mu.Unlock()
	q.signalUpdate()
}

// Mark records the end of segment's audio.
func (q *playbackQueue) Mark(segment string) {
	q.mu.Lock()
	q.items = append(q.items, queueItem{Mark: segment})
	q.mu.Unlock()
	q.signalUpdate()
}

// AllAudioLoaded appends the terminal marker. Items already queued are still
// played.
func (q *playbackQueue) AllAudioLoaded() {
	q.mu.Lock()
	q.allAudioLoaded = true
	q.mu.Unlock()
	q.signalUpdate()
}

// Stop ends iteration without playing the remaining items.
func (q *playbackQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()
	q.signalUpdate()
}

// Items yields queued items in order and blocks for more until the terminal
// marker is reached or the queue is stopped.
func (q *playbackQueue) Items(yield func(queueItem) bool) {
	for {
		item, ok, done := q.next()
		if done {
			return
		}
		if !ok {
			<-q.updateSignal
			continue
		}
		if !yield(item) {
			return
		}
	}
}

func (q *playbackQueue) next() (item queueItem, ok bool, done bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return queueItem{}, false, true
	}
	if q.playhead < len(q.items) {
		item = q.items[q.playhead]
		q.playhead++
		return item, true, false
	}
	return queueItem{}, false, q.allAudioLoaded
}

// Progress is a monotonic counter of queued plus played items.
func (q *playbackQueue) Progress() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) + q.playhead
}

func (q *playbackQueue) signalUpdate() {
	select {
	case q.updateSignal <- struct{}{}:
	default:
	}
}
