package llm

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"time"
)

// Discovery reports the models installed in the local Ollama runtime.
type Discovery struct {
	Available bool     `json:"available"`
	Models    []string `json:"models"`
}

// CommandRunner runs a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Discoverer lists local models by shelling out to `ollama list`.
type Discoverer struct {
	binary  string
	timeout time.Duration
	run     CommandRunner
}

// NewDiscoverer creates a Discoverer for the given ollama binary. A nil
// runner executes the real command.
func NewDiscoverer(binary string, runner CommandRunner) *Discoverer {
	if binary == "" {
		binary = "ollama"
	}
	if runner == nil {
		runner = execRunner
	}
	return &Discoverer{binary: binary, timeout: 10 * time.Second, run: runner}
}

// Discover never fails: an unreachable runtime yields Available=false.
func (d *Discoverer) Discover(ctx context.Context) Discovery {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.run(ctx, d.binary, "list")
	if err != nil {
		return Discovery{Available: false, Models: []string{}}
	}
	return Discovery{Available: true, Models: ParseModelList(string(out))}
}

// ParseModelList extracts model names from `ollama list` output, skipping
// the header row.
func ParseModelList(output string) []string {
	models := []string{}
	scanner := bufio.NewScanner(strings.NewReader(output))
	first := true
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(fields[0], "NAME") {
				continue
			}
		}
		models = append(models, fields[0])
	}
	return models
}
