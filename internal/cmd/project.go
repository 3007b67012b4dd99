package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/pipeline"
)

// ManifestName is the file written next to an exported project.
const ManifestName = "codepair.yaml"

// Manifest records how an exported project was produced.
type Manifest struct {
	RunID            string   `yaml:"run_id"`
	Prompt           string   `yaml:"prompt"`
	ProjectType      string   `yaml:"project_type"`
	Files            []string `yaml:"files"`
	RequiredPackages []string `yaml:"required_packages,omitempty"`
	InstallCommands  []string `yaml:"install_commands,omitempty"`
}

// writeProject writes the final project files under dir, followed by the
// manifest. Paths that would escape dir are rejected before anything is
// written.
func writeProject(dir string, req pipeline.Request, finish event.PipelineFinish, commands []string) error {
	paths := make([]string, 0, len(finish.ProjectFiles))
	for path := range finish.ProjectFiles {
		if !filepath.IsLocal(path) {
			return fmt.Errorf("refusing to write %q outside %s", path, dir)
		}
		if path == ManifestName {
			return fmt.Errorf("generated file %q collides with the manifest", path)
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)

	for _, path := range paths {
		target := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := os.WriteFile(target, []byte(finish.ProjectFiles[path]), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	data, err := yaml.Marshal(Manifest{
		RunID:            req.RunID,
		Prompt:           req.Prompt,
		ProjectType:      req.ProjectType,
		Files:            paths,
		RequiredPackages: finish.RequiredPackages,
		InstallCommands:  commands,
	})
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
