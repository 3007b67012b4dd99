package event

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Record is one line of a JSONL run transcript.
type Record struct {
	Seq   int64           `json:"seq"`
	RunID string          `json:"run_id"`
	Time  time.Time       `json:"time"`
	Type  Type            `json:"type"`
	Data  json.RawMessage `json:"data"`
}

// Recorder appends events to a JSONL transcript, one Record per line, with
// a strictly increasing sequence number.
type Recorder struct {
	mu      sync.Mutex
	w       *bufio.Writer
	runID   string
	nextSeq int64
	err     error
	closed  bool
}

// NewRecorder creates a Recorder writing records for runID to w.
func NewRecorder(w io.Writer, runID string) *Recorder {
	return &Recorder{
		w:       bufio.NewWriter(w),
		runID:   runID,
		nextSeq: 1,
	}
}

// Append writes one event. Chunk events are recorded like any other so a
// transcript can be replayed with its original pacing.
func (r *Recorder) Append(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder is closed")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.EventType(), err)
	}

	line, err := json.Marshal(Record{
		Seq:   r.nextSeq,
		RunID: r.runID,
		Time:  ev.Timestamp().UTC(),
		Type:  ev.EventType(),
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := r.w.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	r.nextSeq++

	// A run's last event is the natural flush point.
	if ev.EventType() == TypePipelineFinish {
		return r.w.Flush()
	}
	return nil
}

// Handle adapts Append to a bus Handler. The first write error is kept and
// returned by Close.
func (r *Recorder) Handle(ev Event) {
	if err := r.Append(ev); err != nil {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
}

// Close flushes buffered records. It returns the first error seen by Handle.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return r.err
	}
	r.closed = true
	if err := r.w.Flush(); err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

// TranscriptReader reads records written by a Recorder.
type TranscriptReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewTranscriptReader creates a reader over a JSONL transcript.
func NewTranscriptReader(r io.Reader) *TranscriptReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	return &TranscriptReader{scanner: scanner}
}

// Next returns the next record and its decoded event, or io.EOF.
func (tr *TranscriptReader) Next() (Record, Event, error) {
	for tr.scanner.Scan() {
		tr.line++
		raw := tr.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Record{}, nil, fmt.Errorf("line %d: %w", tr.line, err)
		}
		ev, err := Decode(rec.Type, rec.Data)
		if err != nil {
			return rec, nil, fmt.Errorf("line %d: %w", tr.line, err)
		}
		return rec, ev, nil
	}
	if err := tr.scanner.Err(); err != nil {
		return Record{}, nil, err
	}
	return Record{}, nil, io.EOF
}
