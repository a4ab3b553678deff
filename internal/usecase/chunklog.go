package usecase

import "sync"

// chunkLog is the ordered, append-only chunk sequence of one session. The
// flush pump appends concurrently with Stop reading, so access is guarded.
type chunkLog struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

func newChunkLog() *chunkLog {
	return &chunkLog{}
}

func (l *chunkLog) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	l.mu.Lock()
	l.chunks = append(l.chunks, chunk)
	l.size += len(chunk)
	l.mu.Unlock()
}

func (l *chunkLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chunks)
}

// Bytes concatenates the sequence into one artifact blob.
func (l *chunkLog) Bytes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob := make([]byte, 0, l.size)
	for _, chunk := range l.chunks {
		blob = append(blob, chunk...)
	}
	return blob
}

func (l *chunkLog) Reset() {
	l.mu.Lock()
	l.chunks = nil
	l.size = 0
	l.mu.Unlock()
}
