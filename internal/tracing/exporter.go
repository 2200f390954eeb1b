package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var errExporterClosed = errors.New("span log is closed")

// SpanLog is a span exporter that appends one JSON object per finished span.
// The registration attributes are lifted to top-level fields so the file can
// be grepped by username or request ID without parsing attribute maps.
type SpanLog struct {
	mu  sync.Mutex
	w   io.WriteCloser
	enc *json.Encoder
}

// OpenSpanLog appends to path, creating it and its directory if needed.
func OpenSpanLog(path string) (*SpanLog, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return NewSpanLog(f), nil
}

// NewSpanLog writes spans to w. Shutdown closes w.
func NewSpanLog(w io.WriteCloser) *SpanLog {
	return &SpanLog{w: w, enc: json.NewEncoder(w)}
}

// ExportSpans implements sdktrace.SpanExporter.
func (l *SpanLog) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return errExporterClosed
	}
	for _, s := range spans {
		if err := l.enc.Encode(newSpanEntry(s)); err != nil {
			return fmt.Errorf("write span %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter. Calling it twice is a no-op.
func (l *SpanLog) Shutdown(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	err := l.w.Close()
	l.w, l.enc = nil, nil
	return err
}

// SpanEntry is one line of the span log.
type SpanEntry struct {
	Trace     string         `json:"trace_id"`
	Span      string         `json:"span_id"`
	Parent    string         `json:"parent_span_id,omitempty"`
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Start     time.Time      `json:"start"`
	Took      string         `json:"took"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Operation string         `json:"operation,omitempty"`
	Username  string         `json:"username,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	HTTPCode  int64          `json:"http_status,omitempty"`
	Extra     map[string]any `json:"attributes,omitempty"`
}

// lifted attributes land in SpanEntry fields instead of Extra.
var lifted = map[attribute.Key]func(*SpanEntry, attribute.Value){
	AttrOperation:  func(e *SpanEntry, v attribute.Value) { e.Operation = v.Emit() },
	AttrUsername:   func(e *SpanEntry, v attribute.Value) { e.Username = v.Emit() },
	AttrRequestID:  func(e *SpanEntry, v attribute.Value) { e.RequestID = v.Emit() },
	AttrHTTPStatus: func(e *SpanEntry, v attribute.Value) { e.HTTPCode = v.AsInt64() },
}

func newSpanEntry(s sdktrace.ReadOnlySpan) SpanEntry {
	e := SpanEntry{
		Trace:  s.SpanContext().TraceID().String(),
		Span:   s.SpanContext().SpanID().String(),
		Name:   s.Name(),
		Kind:   s.SpanKind().String(),
		Start:  s.StartTime().UTC(),
		Took:   s.EndTime().Sub(s.StartTime()).String(),
		Status: s.Status().Code.String(),
		Error:  s.Status().Description,
	}
	if p := s.Parent(); p.IsValid() {
		e.Parent = p.SpanID().String()
	}
	for _, kv := range s.Attributes() {
		if set, ok := lifted[kv.Key]; ok {
			set(&e, kv.Value)
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[string(kv.Key)] = kv.Value.AsInterface()
	}
	return e
}
