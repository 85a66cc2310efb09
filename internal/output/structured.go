package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
)

// StructuredSink writes machine-readable output.
//
// Formats:
//   - json: keeps the Summary and writes a single Document on Close
//   - ndjson: streams Event values (one JSON object per line)
type StructuredSink struct {
	writer io.Writer
	format string // "json" | "ndjson"
	mu     sync.Mutex
	doc    *Document
}

func NewStructuredSink(w io.Writer, format string) (*StructuredSink, error) {
	if w == nil {
		return nil, fmt.Errorf("structured sink writer must not be nil")
	}
	if format != FormatJSON && format != FormatNDJSON {
		return nil, fmt.Errorf("unsupported structured format: %s", format)
	}
	return &StructuredSink{writer: w, format: format}, nil
}

func (s *StructuredSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case FormatJSON:
		sum, ok := v.(Summary)
		if !ok {
			// Ignore lifecycle events in JSON aggregate mode.
			return nil
		}
		doc := DocumentFromSummary(sum)
		s.doc = &doc
		return nil
	case FormatNDJSON:
		e, ok := v.(Event)
		if !ok {
			return nil
		}
		if err := json.NewEncoder(s.writer).Encode(e); err != nil {
			return err
		}
		return flush(s.writer)
	default:
		return fmt.Errorf("unsupported structured format: %s", s.format)
	}
}

func (s *StructuredSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format != FormatJSON || s.doc == nil {
		return nil
	}
	encoder := json.NewEncoder(s.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.doc); err != nil {
		return err
	}
	return flush(s.writer)
}

// flush pushes buffered output through when w supports it (bufio.Writer and
// friends).
func flush(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
