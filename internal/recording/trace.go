// Package recording writes a compressed JSONL trace of every cycle and reads
// it back.
package recording

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/crowdsense/internal/engine"
)

// Ext is the trace file extension.
const Ext = ".jsonl.zst"

// TraceWriter appends one JSON line per cycle report to a zstd-compressed
// file. It implements engine.Observer.
type TraceWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// NewTraceWriter creates dir if needed and opens <dir>/<runID>.jsonl.zst.
func NewTraceWriter(dir, runID string) (*TraceWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trace dir: %w", err)
	}
	path := filepath.Join(dir, runID+Ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("trace encoder: %w", err)
	}
	return &TraceWriter{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Path returns the trace file path.
func (t *TraceWriter) Path() string {
	return t.path
}

// Written returns the number of reports written so far.
func (t *TraceWriter) Written() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// ObserveCycle implements engine.Observer.
func (t *TraceWriter) ObserveCycle(r *engine.CycleReport) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return fmt.Errorf("trace %s: closed", t.path)
	}

	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return err
	}
	t.n++
	return t.w.Flush()
}

// Close flushes and closes the trace. It is safe to call more than once.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.w != nil {
		err = t.w.Flush()
		t.w = nil
	}
	if t.enc != nil {
		if cerr := t.enc.Close(); err == nil {
			err = cerr
		}
		t.enc = nil
	}
	if t.f != nil {
		if cerr := t.f.Close(); err == nil {
			err = cerr
		}
		t.f = nil
	}
	return err
}

// ReadTrace calls fn for every report in a trace file, in order. It stops at
// the first error returned by fn.
func ReadTrace(path string, fn func(engine.CycleReport) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var r engine.CycleReport
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Summary aggregates a trace.
type Summary struct {
	Cycles       int            `json:"cycles"`
	FirstCycle   uint64         `json:"first_cycle"`
	LastCycle    uint64         `json:"last_cycle"`
	EventsMade   int            `json:"events_created"`
	Recognitions map[string]int `json:"recognitions"`
	PeakResolved int            `json:"peak_resolved"`
}

// Summarize reads a whole trace into a Summary.
func Summarize(path string) (Summary, error) {
	s := Summary{Recognitions: make(map[string]int)}
	err := ReadTrace(path, func(r engine.CycleReport) error {
		if s.Cycles == 0 {
			s.FirstCycle = r.Stats.Cycle
		}
		s.Cycles++
		s.LastCycle = r.Stats.Cycle
		s.EventsMade += len(r.Created)
		for _, rec := range r.Recognitions {
			s.Recognitions[rec.Event]++
		}
		s.PeakResolved = max(s.PeakResolved, r.Stats.Resolved)
		return nil
	})
	return s, err
}
