package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Iron-Ham/codepair/internal/logging"
)

// Publisher is the subset of *nats.Conn used by NATSMirror.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ConnectNATS dials a NATS server for event mirroring. Reconnects are
// unlimited so a restarting broker does not end a long-running server.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("codepair"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}

// NATSMirror publishes every event of one run to
// <prefix>.<runID>.<event type>, using the same Record envelope as the
// JSONL transcript. Publish failures are logged, never returned: the
// mirror must not affect the run.
type NATSMirror struct {
	pub    Publisher
	prefix string
	runID  string
	logger *logging.Logger
	seq    int64
}

// NewNATSMirror creates a mirror for one run.
func NewNATSMirror(pub Publisher, prefix, runID string, logger *logging.Logger) *NATSMirror {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &NATSMirror{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "."),
		runID:  runID,
		logger: logger,
	}
}

// Subject returns the subject an event of type t is published on.
func (m *NATSMirror) Subject(t Type) string {
	return fmt.Sprintf("%s.%s.%s", m.prefix, m.runID, t)
}

// Handle is a bus Handler.
func (m *NATSMirror) Handle(ev Event) {
	m.seq++
	data, err := json.Marshal(ev)
	if err != nil {
		m.logger.Warn("nats mirror: marshal failed", "event", string(ev.EventType()), "error", err)
		return
	}
	payload, err := json.Marshal(Record{
		Seq:   m.seq,
		RunID: m.runID,
		Time:  ev.Timestamp().UTC(),
		Type:  ev.EventType(),
		Data:  data,
	})
	if err != nil {
		m.logger.Warn("nats mirror: marshal failed", "event", string(ev.EventType()), "error", err)
		return
	}
	if err := m.pub.Publish(m.Subject(ev.EventType()), payload); err != nil {
		m.logger.Warn("nats mirror: publish failed", "event", string(ev.EventType()), "error", err)
	}
}
