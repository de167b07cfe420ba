package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tabscope/internal/profile"
)

// ChartKind names the kind of chart a consumer should draw.
type ChartKind string

const (
	ChartBar       ChartKind = "bar"
	ChartHistogram ChartKind = "histogram"
	ChartScatter   ChartKind = "scatter"
	ChartHeatmap   ChartKind = "heatmap"
	ChartBox       ChartKind = "box"
)

// ChartRequest is chart data handed to an external renderer. Nothing is drawn here.
type ChartRequest struct {
	ID        uuid.UUID `json:"id"`
	Kind      ChartKind `json:"kind"`
	Title     string    `json:"title"`
	XLabel    string    `json:"x_label,omitempty"`
	YLabel    string    `json:"y_label,omitempty"`
	Data      any       `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// ChartSink receives chart requests.
type ChartSink interface {
	Submit(ctx context.Context, req ChartRequest) error
}

func newRequest(kind ChartKind, title, x, y string, data any) ChartRequest {
	return ChartRequest{
		ID:        uuid.New(),
		Kind:      kind,
		Title:     title,
		XLabel:    x,
		YLabel:    y,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

type barDatum struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// BarChart charts value counts of a column.
func BarChart(title, column string, counts []profile.ValueCount) ChartRequest {
	data := make([]barDatum, len(counts))
	for i, c := range counts {
		data[i] = barDatum{Label: c.Value.String(), Count: c.Count}
	}
	return newRequest(ChartBar, title, column, "count", data)
}

// HistogramChart charts histogram bins of a column.
func HistogramChart(title, column string, bins []profile.Bin) ChartRequest {
	return newRequest(ChartHistogram, title, column, "count", bins)
}

// ScatterChart charts paired points.
func ScatterChart(title, x, y string, points []profile.Point) ChartRequest {
	return newRequest(ChartScatter, title, x, y, points)
}

// HeatmapChart charts a correlation matrix.
func HeatmapChart(title string, m *profile.CorrMatrix) ChartRequest {
	return newRequest(ChartHeatmap, title, "", "", m)
}

// BoxChart charts the quartiles of described columns, one box per column. Whisker
// placement is left to the renderer.
func BoxChart(title string, desc []profile.Description) ChartRequest {
	return newRequest(ChartBox, title, "", "value", desc)
}

// JSONLinesSink appends each request as one JSON line. It is safe for concurrent use.
type JSONLinesSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewJSONLinesSink writes requests to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{w: w}
}

// OpenJSONLinesSink appends requests to the file at path, creating it if needed.
func OpenJSONLinesSink(path string) (*JSONLinesSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open chart sink: %w", err)
	}
	return &JSONLinesSink{w: f, closer: f}, nil
}

func (s *JSONLinesSink) Submit(ctx context.Context, req ChartRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode chart %q: %w", req.Title, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write chart %q: %w", req.Title, err)
	}
	return nil
}

// Close closes the underlying file, if the sink opened one.
func (s *JSONLinesSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// MemorySink keeps requests in memory.
type MemorySink struct {
	mu       sync.Mutex
	requests []ChartRequest
}

func (s *MemorySink) Submit(ctx context.Context, req ChartRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return nil
}

// Requests returns a copy of the submitted requests in order.
func (s *MemorySink) Requests() []ChartRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChartRequest(nil), s.requests...)
}

// DiscardSink drops every request.
type DiscardSink struct{}

func (DiscardSink) Submit(context.Context, ChartRequest) error { return nil }
