package stage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/codepair/internal/errors"
	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/extract"
	"github.com/Iron-Ham/codepair/internal/llm"
)

// PackageManager describes how packages are added for one ecosystem.
type PackageManager struct {
	Name     string
	Command  string // e.g. "npm install", "yarn add"
	Manifest string // file holding declared dependencies
}

// Install returns the install command line for pkg.
func (m PackageManager) Install(pkg string) string {
	return m.Command + " " + pkg
}

var (
	npmManager  = PackageManager{Name: "npm", Command: "npm install", Manifest: "package.json"}
	yarnManager = PackageManager{Name: "yarn", Command: "yarn add", Manifest: "package.json"}
	pnpmManager = PackageManager{Name: "pnpm", Command: "pnpm add", Manifest: "package.json"}
	bunManager  = PackageManager{Name: "bun", Command: "bun add", Manifest: "package.json"}
	pipManager  = PackageManager{Name: "pip", Command: "pip install", Manifest: "requirements.txt"}
)

type managerRule struct {
	match   glob.Glob
	manager PackageManager
}

// managerRules are checked in order; the first rule matching any project
// path selects the manager.
var managerRules = []managerRule{
	{glob.MustCompile("{yarn.lock,**/yarn.lock}", '/'), yarnManager},
	{glob.MustCompile("{pnpm-lock.yaml,**/pnpm-lock.yaml}", '/'), pnpmManager},
	{glob.MustCompile("{bun.lockb,bun.lock,**/bun.lockb,**/bun.lock}", '/'), bunManager},
	{glob.MustCompile("{requirements.txt,pyproject.toml,**/requirements.txt,**/pyproject.toml}", '/'), pipManager},
}

// DetectManager picks the package manager from marker files in files,
// falling back to pip for python projects and npm otherwise.
func DetectManager(files map[string]string, projectType string) PackageManager {
	paths := sortedPaths(files)
	for _, rule := range managerRules {
		for _, p := range paths {
			if rule.match.Match(p) {
				return rule.manager
			}
		}
	}
	if strings.EqualFold(projectType, "python") {
		return pipManager
	}
	return npmManager
}

// validPackage accepts npm names (optionally scoped, optionally with a
// version or tag) and PyPI names. Anything with whitespace or shell
// metacharacters is rejected.
var validPackage = regexp.MustCompile(`^(@[A-Za-z0-9][A-Za-z0-9._~-]*/)?[A-Za-z0-9][A-Za-z0-9._~-]*(\[[A-Za-z0-9,_-]+\])?(@[A-Za-z0-9._^~*-]+|[=<>!~]=?[A-Za-z0-9.*]+)?$`)

// InstallInput is the project state the analyst sees.
type InstallInput struct {
	Task        string
	Anchor      string
	History     []llm.Message
	Files       map[string]string
	ProjectType string
	Agent       llm.AgentConfig
}

// InstallResult lists the packages found and the matching commands.
type InstallResult struct {
	Manager  PackageManager
	Packages []string
	Commands []string
}

// Install asks which packages the project still needs. It emits one
// install_command per package followed by install_analysis_complete, or a
// single install_no_actions_needed. Transport failures are returned as a
// StageError for installing_deps.
func (r *Runner) Install(ctx context.Context, in InstallInput, emit event.Emitter) (InstallResult, error) {
	emit = emitOrDiscard(emit)
	log := r.logger.WithStage(string(event.StageInstallingDeps))

	manager := DetectManager(in.Files, in.ProjectType)
	manifest, hasManifest := in.Files[manager.Manifest]
	manifestName := ""
	if hasManifest {
		manifestName = manager.Manifest
	}
	log.Debug("install check started", "manager", manager.Name, "files", len(in.Files))

	msgs := make([]llm.Message, 0, len(in.History)+2)
	msgs = append(msgs, llm.System(FormatInstallSystem(in.ProjectType, manager.Name)))
	msgs = append(msgs, r.Bound(in.History, anchorOr(in.Anchor, in.Task))...)
	msgs = append(msgs, llm.User(FormatInstallUser(in.Task, in.Files, manifestName, manifest)))

	text, err := r.Complete(ctx, event.StageInstallingDeps, in.Agent, msgs, nil)
	if err != nil {
		var stageErr *errors.StageError
		if errors.As(err, &stageErr) {
			stageErr.WithSeverity(errors.SeverityWarning)
		}
		return InstallResult{Manager: manager}, err
	}

	declared := declaredPackages(manager, manifest)
	packages, dropped := ParsePackages(text, declared)
	if dropped > 0 {
		log.Warn("install suggestions dropped", "dropped", dropped)
	}

	result := InstallResult{Manager: manager, Packages: packages, Commands: make([]string, 0, len(packages))}
	if len(packages) == 0 {
		emit(event.NewInstallNoActionsNeeded())
		log.Debug("install check finished", "packages", 0)
		return result, nil
	}

	for _, pkg := range packages {
		cmd := manager.Install(pkg)
		result.Commands = append(result.Commands, cmd)
		emit(event.NewInstallCommand(cmd))
	}
	emit(event.NewInstallAnalysisComplete(result.Commands))

	log.Debug("install check finished", "packages", len(packages))
	return result, nil
}

// ParsePackages extracts a JSON array of package names from text. Invalid
// names, duplicates and names in declared are dropped; dropped counts the
// invalid ones. A reply that is not an array of strings yields no packages.
func ParsePackages(text string, declared map[string]bool) (packages []string, dropped int) {
	packages = []string{}

	raw, ok := extract.JSONString(text)
	if !ok {
		return packages, 0
	}
	var elems []any
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return packages, 0
	}

	seen := make(map[string]bool)
	for _, elem := range elems {
		name, ok := elem.(string)
		if !ok {
			dropped++
			continue
		}
		name = strings.TrimSpace(name)
		if !validPackage.MatchString(name) {
			dropped++
			continue
		}
		base := baseName(name)
		if declared[base] || seen[name] {
			continue
		}
		seen[name] = true
		packages = append(packages, name)
	}
	return packages, dropped
}

// baseName strips a version, tag or extras suffix from a package spec.
func baseName(spec string) string {
	rest := spec
	prefix := ""
	if strings.HasPrefix(rest, "@") {
		if i := strings.Index(rest, "/"); i > 0 {
			prefix, rest = rest[:i+1], rest[i+1:]
		}
	}
	if i := strings.IndexAny(rest, "@[=<>!~"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(prefix + rest)
}

func declaredPackages(manager PackageManager, manifest string) map[string]bool {
	declared := make(map[string]bool)
	if strings.TrimSpace(manifest) == "" {
		return declared
	}

	switch manager.Manifest {
	case "package.json":
		var pkg struct {
			Dependencies         map[string]string `json:"dependencies"`
			DevDependencies      map[string]string `json:"devDependencies"`
			PeerDependencies     map[string]string `json:"peerDependencies"`
			OptionalDependencies map[string]string `json:"optionalDependencies"`
		}
		if err := json.Unmarshal([]byte(manifest), &pkg); err != nil {
			return declared
		}
		for _, deps := range []map[string]string{pkg.Dependencies, pkg.DevDependencies, pkg.PeerDependencies, pkg.OptionalDependencies} {
			for name := range deps {
				declared[strings.ToLower(name)] = true
			}
		}
	case "requirements.txt":
		scanner := bufio.NewScanner(strings.NewReader(manifest))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
				continue
			}
			if i := strings.IndexAny(line, " ;#"); i >= 0 {
				line = line[:i]
			}
			declared[baseName(line)] = true
		}
	}
	return declared
}

// String implements fmt.Stringer.
func (m PackageManager) String() string {
	return fmt.Sprintf("%s (%s)", m.Name, m.Command)
}
