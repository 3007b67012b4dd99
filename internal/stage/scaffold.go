package stage

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/extract"
	"github.com/Iron-Ham/codepair/internal/llm"
)

// Scaffold item kinds.
const (
	ItemFolder = "folder"
	ItemFile   = "file"
)

// ScaffoldItem is one folder or file to create.
type ScaffoldItem struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// ScaffoldInput is the task used as the scaffold topic.
type ScaffoldInput struct {
	Topic       string
	ProjectType string
	Agent       llm.AgentConfig
}

// ScaffoldResult lists the accepted items and how many were dropped.
type ScaffoldResult struct {
	Items    []ScaffoldItem
	Rejected int
}

// Files returns the file items as a path to content map.
func (s ScaffoldResult) Files() map[string]string {
	files := make(map[string]string)
	for _, item := range s.Items {
		if item.Type == ItemFile {
			files[item.Path] = item.Content
		}
	}
	return files
}

// Scaffold asks for the initial project skeleton. Unparseable output yields
// an empty scaffold; only transport failures return an error. One
// folder_create or file_create event is emitted per accepted item.
func (r *Runner) Scaffold(ctx context.Context, in ScaffoldInput, emit event.Emitter) (ScaffoldResult, error) {
	emit = emitOrDiscard(emit)
	log := r.logger.WithStage(string(event.StageScaffolding))
	log.Debug("scaffold started", "agent", in.Agent.String())

	msgs := []llm.Message{
		llm.System(FormatScaffoldSystem(in.ProjectType)),
		llm.User(in.Topic),
	}

	text, err := r.Complete(ctx, event.StageScaffolding, in.Agent, msgs, nil)
	if err != nil {
		return ScaffoldResult{}, err
	}

	result := ParseScaffold(text)
	if result.Rejected > 0 {
		log.Warn("scaffold items rejected", "rejected", result.Rejected, "accepted", len(result.Items))
	}
	if len(result.Items) == 0 {
		log.Warn("scaffold produced no usable items")
	}

	for _, item := range result.Items {
		switch item.Type {
		case ItemFolder:
			emit(event.NewFolderCreate(item.Path))
		case ItemFile:
			emit(event.NewFileCreate(item.Path, item.Content))
		}
	}

	log.Debug("scaffold finished", "items", len(result.Items))
	return result, nil
}

// ParseScaffold extracts scaffold items from model output, dropping any
// item with the wrong shape or an unsafe path.
func ParseScaffold(text string) ScaffoldResult {
	raw, ok := extract.JSONString(text)
	if !ok {
		return ScaffoldResult{Items: []ScaffoldItem{}}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return ScaffoldResult{Items: []ScaffoldItem{}}
	}

	result := ScaffoldResult{Items: make([]ScaffoldItem, 0, len(elems))}
	for _, elem := range elems {
		item, ok := parseScaffoldItem(elem)
		if !ok {
			result.Rejected++
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result
}

func parseScaffoldItem(data json.RawMessage) (ScaffoldItem, bool) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return ScaffoldItem{}, false
	}

	kind, _ := fields["type"].(string)
	rawPath, ok := fields["path"].(string)
	if !ok {
		return ScaffoldItem{}, false
	}
	clean, ok := SafePath(rawPath)
	if !ok {
		return ScaffoldItem{}, false
	}

	switch strings.ToLower(kind) {
	case ItemFolder:
		return ScaffoldItem{Type: ItemFolder, Path: clean}, true
	case ItemFile:
		content, ok := fields["content"].(string)
		if !ok {
			return ScaffoldItem{}, false
		}
		return ScaffoldItem{Type: ItemFile, Path: clean, Content: content}, true
	default:
		return ScaffoldItem{}, false
	}
}

// SafePath normalizes a project-relative path, rejecting absolute paths and
// paths that escape the project root.
func SafePath(p string) (string, bool) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" || strings.HasPrefix(p, "/") || (len(p) > 1 && p[1] == ':') {
		return "", false
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}
