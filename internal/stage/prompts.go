package stage

import (
	"fmt"
	"sort"
	"strings"
)

// RefineSystemPrompt constrains the refiner to emit only the task text.
const RefineSystemPrompt = `You are a senior software engineer who turns rough feature requests into precise, actionable task descriptions.

Rewrite the user's request as a single clear task for a developer. Keep every requirement the user stated, resolve obvious ambiguities with sensible defaults, and name the key features, UI elements and behaviours to implement.

Output ONLY the refined task description. Do not add greetings, explanations, headings, markdown fences or commentary of any kind.`

// ScaffoldSystemPrompt demands a bare JSON array of scaffold items.
const ScaffoldSystemPrompt = `You are a project scaffolding generator for %s projects.

Given a task, output the initial folder and file structure needed to start implementing it.

Respond with ONLY a JSON array. Each element MUST be one of:
  {"type": "folder", "path": "<relative/path>"}
  {"type": "file", "path": "<relative/path>", "content": "<initial file content>"}

Rules:
- Paths MUST be relative to the project root. Never use absolute paths or "..".
- Include only the essential skeleton (entry point, config, a few components). Keep file contents short.
- Do NOT wrap the array in prose. Do NOT add comments.`

// CodegenSystemPrompt restricts the coder to one file.
const CodegenSystemPrompt = `You are Worker 1, an expert %s developer working in a pair with a code reviewer.

You write production-quality code for exactly ONE file: %s

Rules:
- Return the COMPLETE content of %s in a single fenced code block tagged ` + "`%s`" + `.
- Never return partial snippets, diffs or placeholders such as "// rest unchanged".
- Address every issue the reviewer raised in the conversation so far.
- After the code block you may add at most a few sentences explaining what changed.`

// CodegenUserTemplate carries the task and current file state.
const CodegenUserTemplate = `## Task
%s

## Target file
%s

## Current content of %s
%s

Write the complete, updated content of %s now.`

// ReviewSystemPrompt over-specifies the verdict contract.
const ReviewSystemPrompt = `You are Worker 2, a meticulous senior code reviewer.

You review the latest version of one file written by Worker 1 and decide whether it fully and correctly implements the task.

You MUST respond with a single JSON object inside a ` + "```json" + ` fenced block, with EXACTLY these three fields:

` + "```json" + `
{
  "status": "APPROVED" | "REVISION_NEEDED" | "NEEDS_CLARIFICATION",
  "key_issues": ["<concise issue>", "..."],
  "next_action_for_w1": "<one concrete instruction for Worker 1>"
}
` + "```" + `

Field requirements:
- "status": MUST be exactly one of APPROVED, REVISION_NEEDED, NEEDS_CLARIFICATION.
- "key_issues": MUST be a JSON array of strings. Use [] when approving with no issues.
- "next_action_for_w1": MUST be a string. When approving, describe the next improvement or say "none".

COMMON MISTAKES TO AVOID:
- Do NOT write any text before or after the fenced block.
- Do NOT truncate the JSON. Close every bracket and quote.
- Do NOT add fields, comments or trailing commas.
- Do NOT use any other status value.`

// ReviewUserTemplate presents the file, the project and the coder's message.
const ReviewUserTemplate = `## Task
%s

## File under review: %s
` + "```" + `
%s
` + "```" + `

## Project files
%s

## Worker 1's latest response
%s

Return your verdict now as the single fenced JSON object described above.`

// InstallSystemPrompt asks for bare package names only.
const InstallSystemPrompt = `You are a dependency analyst for %s projects using %s.

Given the project files and the task, list the third-party packages that must be installed for the project to build and run, and that are NOT already declared in the manifest.

Respond with ONLY a JSON array of bare package names, for example ["zustand", "clsx"].
- Do NOT include install commands, version ranges, or explanations.
- Do NOT include packages that ship with the runtime or are already declared.
- Respond with [] if nothing is missing.`

// InstallUserTemplate carries the project state.
const InstallUserTemplate = `## Task
%s

## Project files
%s

## Manifest (%s)
%s`

// FormatScaffoldSystem fills ScaffoldSystemPrompt.
func FormatScaffoldSystem(projectType string) string {
	return fmt.Sprintf(ScaffoldSystemPrompt, projectType)
}

// FormatCodegenSystem fills CodegenSystemPrompt for filename.
func FormatCodegenSystem(projectType, filename, fenceTag string) string {
	return fmt.Sprintf(CodegenSystemPrompt, projectType, filename, filename, fenceTag)
}

// FormatCodegenUser fills CodegenUserTemplate. Empty content is shown as a
// note so the model knows it is creating the file.
func FormatCodegenUser(task, filename, content string) string {
	current := "(file does not exist yet)"
	if strings.TrimSpace(content) != "" {
		current = "```\n" + content + "\n```"
	}
	return fmt.Sprintf(CodegenUserTemplate, task, filename, filename, current, filename)
}

// FormatReviewUser fills ReviewUserTemplate.
func FormatReviewUser(task, filename, content string, files map[string]string, coderResponse string) string {
	return fmt.Sprintf(ReviewUserTemplate, task, filename, content, fileList(files), coderResponse)
}

// FormatInstallSystem fills InstallSystemPrompt.
func FormatInstallSystem(projectType, manager string) string {
	return fmt.Sprintf(InstallSystemPrompt, projectType, manager)
}

// FormatInstallUser fills InstallUserTemplate. Every file is listed by path
// with its content, followed by the manifest.
func FormatInstallUser(task string, files map[string]string, manifestName, manifest string) string {
	var sb strings.Builder
	for _, path := range sortedPaths(files) {
		fmt.Fprintf(&sb, "### %s\n```\n%s\n```\n", path, files[path])
	}
	if manifestName == "" {
		manifestName = "none"
		manifest = "(no manifest file)"
	}
	return fmt.Sprintf(InstallUserTemplate, task, strings.TrimSpace(sb.String()), manifestName, manifest)
}

func fileList(files map[string]string) string {
	if len(files) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, path := range sortedPaths(files) {
		fmt.Fprintf(&sb, "- %s (%d bytes)\n", path, len(files[path]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
