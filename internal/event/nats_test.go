package event

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSMirror_Subject(t *testing.T) {
	m := NewNATSMirror(&fakePublisher{}, "codepair.", "run-9", nil)
	if got := m.Subject(TypeFileUpdate); got != "codepair.run-9.file_update" {
		t.Errorf("Subject() = %q", got)
	}
}

func TestNATSMirror_Handle(t *testing.T) {
	pub := &fakePublisher{}
	m := NewNATSMirror(pub, "codepair", "run-1", nil)

	m.Handle(NewStageChange(StageCodingTurn, "Turn 1"))
	m.Handle(NewPipelineFinish(nil, nil))

	if len(pub.subjects) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pub.subjects))
	}
	if pub.subjects[0] != "codepair.run-1.stage_change" {
		t.Errorf("subject[0] = %q", pub.subjects[0])
	}

	var rec Record
	if err := json.Unmarshal(pub.payloads[1], &rec); err != nil {
		t.Fatalf("payload is not a record: %v", err)
	}
	if rec.Seq != 2 || rec.Type != TypePipelineFinish || rec.RunID != "run-1" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestNATSMirror_PublishErrorIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	m := NewNATSMirror(pub, "codepair", "run-1", nil)

	m.Handle(NewPipelineError("x"))
}
