package sitemap

import "sync"

// MemorySink collects records in memory. It backs dry runs and tests.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	ended   bool
	aborted bool
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write implements Sink.
func (m *MemorySink) Write(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ended || m.aborted {
		return ErrWriterClosed
	}
	m.records = append(m.records, rec)
	return nil
}

// End implements Sink.
func (m *MemorySink) End() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ended || m.aborted {
		return len(m.records), ErrWriterClosed
	}
	m.ended = true
	return len(m.records), nil
}

// Abort implements Sink.
func (m *MemorySink) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ended {
		m.aborted = true
	}
	return nil
}

// Records returns a copy of the collected records.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Ended reports whether End was called successfully.
func (m *MemorySink) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ended
}

// Aborted reports whether Abort was called before End.
func (m *MemorySink) Aborted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborted
}
