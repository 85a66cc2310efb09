package output

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleSink is the human-facing sink on stdout. In text format it renders
// the Summary through a Renderer; json and ndjson delegate to a
// StructuredSink on the same writer.
type ConsoleSink struct {
	writer     io.Writer
	format     string
	renderer   *Renderer
	structured *StructuredSink
	mu         sync.Mutex
}

func NewConsoleSink(w io.Writer, format string, renderer *Renderer) (*ConsoleSink, error) {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = FormatText
	}
	s := &ConsoleSink{writer: w, format: format, renderer: renderer}

	switch format {
	case FormatText:
		if s.renderer == nil {
			s.renderer = NewRenderer(false)
		}
	case FormatJSON, FormatNDJSON:
		ss, err := NewStructuredSink(w, format)
		if err != nil {
			return nil, err
		}
		s.structured = ss
	default:
		return nil, fmt.Errorf("unsupported console format: %s", format)
	}
	return s, nil
}

func (s *ConsoleSink) Write(v any) error {
	if s.structured != nil {
		return s.structured.Write(v)
	}

	sum, ok := v.(Summary)
	if !ok {
		// Ignore events in text mode.
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.renderer.Render(sum.View, sum.Report) {
		if _, err := fmt.Fprintln(s.writer, line); err != nil {
			return err
		}
	}
	return flush(s.writer)
}

func (s *ConsoleSink) Close() error {
	if s.structured != nil {
		return s.structured.Close()
	}
	return nil
}
