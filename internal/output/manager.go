package output

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Manager methods called after Close.
var ErrClosed = errors.New("output manager is closed")

// Sink receives the values of one run: Event values as the run progresses
// and a single Summary once every repository has finished.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans values out to every registered sink.
//
// Write may be called from the coordinator's workers concurrently; each value
// reaches all sinks before the next one is written. A sink whose Write fails
// is reported once and receives nothing further. Sinks are closed in reverse
// order of registration.
type Manager struct {
	mu     sync.Mutex
	sinks  []*managedSink
	closed bool
}

type managedSink struct {
	Sink
	failed error
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	if s == nil {
		return errors.New("sink must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.sinks = append(m.sinks, &managedSink{Sink: s})
	return nil
}

func (m *Manager) Write(v any) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	var errs []error
	for _, s := range m.sinks {
		if s.failed != nil {
			continue
		}
		if err := s.Write(v); err != nil {
			s.failed = err
			errs = append(errs, fmt.Errorf("write %T: %w", s.Sink, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

// Close closes every sink once. Later calls return ErrClosed.
func (m *Manager) Close() error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true

	var errs []error
	for i := len(m.sinks) - 1; i >= 0; i-- {
		s := m.sinks[i]
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s.Sink, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}
