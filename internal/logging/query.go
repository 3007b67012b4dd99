package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed line of a codepair log file.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	RunID     string         `json:"run_id,omitempty"`
	Stage     string         `json:"stage,omitempty"`
	Worker    string         `json:"worker,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects entries. Zero-valued fields match everything. RunID
// matches by prefix so the short IDs printed in text output work.
type LogFilter struct {
	// Level is the minimum level to include.
	Level           string
	RunID           string
	Stage           string
	Worker          string
	Since           time.Time
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadEntries loads every entry from {logDir}/codepair.log and its
// uncompressed backups, sorted by timestamp. Lines that are not JSON
// objects are skipped.
func ReadEntries(logDir string) ([]LogEntry, error) {
	paths, err := filepath.Glob(filepath.Join(logDir, LogFileName+".[0-9]*"))
	if err != nil {
		return nil, err
	}
	paths = append(paths, filepath.Join(logDir, LogFileName))

	var entries []LogEntry
	found := false
	for _, p := range paths {
		if strings.HasSuffix(p, ".gz") {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		found = true
		parsed, err := scanEntries(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", p, err)
		}
		entries = append(entries, parsed...)
	}
	if !found {
		return nil, fmt.Errorf("no log file found in %s", logDir)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func scanEntries(r io.Reader) ([]LogEntry, error) {
	var entries []LogEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

func parseEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, err
	}

	entry := LogEntry{Attrs: make(map[string]any)}
	for k, v := range raw {
		s, _ := v.(string)
		switch k {
		case "time":
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				entry.Timestamp = t
			}
		case "level":
			entry.Level = s
		case "msg":
			entry.Message = s
		case "run_id":
			entry.RunID = s
		case "stage":
			entry.Stage = s
		case "worker":
			entry.Worker = s
		default:
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterEntries returns the entries matching filter, preserving order.
func FilterEntries(entries []LogEntry, filter LogFilter) []LogEntry {
	var out []LogEntry
	for _, e := range entries {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f LogFilter) matches(e LogEntry) bool {
	if f.Level != "" {
		floor, ok := levelOrder[strings.ToUpper(f.Level)]
		got, known := levelOrder[e.Level]
		if ok && known && got < floor {
			return false
		}
	}
	if f.RunID != "" && !strings.HasPrefix(e.RunID, f.RunID) {
		return false
	}
	if f.Stage != "" && e.Stage != f.Stage {
		return false
	}
	if f.Worker != "" && e.Worker != f.Worker {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if f.MessageContains != "" && !strings.Contains(e.Message, f.MessageContains) {
		return false
	}
	return true
}

// WriteEntries renders entries to w as "json" (one array) or "text" (one
// line per entry).
func WriteEntries(w io.Writer, entries []LogEntry, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "text", "":
		for _, e := range entries {
			if _, err := fmt.Fprintln(w, formatEntry(e)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, text)", format)
	}
}

func formatEntry(e LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s", e.Timestamp.Format("2006-01-02 15:04:05.000"), e.Level)
	if e.RunID != "" {
		fmt.Fprintf(&b, " run=%s", shortID(e.RunID))
	}
	if e.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", e.Stage)
	}
	if e.Worker != "" {
		fmt.Fprintf(&b, " worker=%s", e.Worker)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
