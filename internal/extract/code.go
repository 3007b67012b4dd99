package extract

import (
	"path/filepath"
	"strings"
)

// CodeBlock returns the body of the first fenced block whose language tag is
// one of langs (case-insensitive). When none matches, the first untagged
// fence is used. With no langs, the first fence of any kind matches.
func CodeBlock(text string, langs ...string) (string, bool) {
	var untagged string
	haveUntagged := false

	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		body := strings.Trim(m[2], "\r\n")
		if len(langs) == 0 {
			return body, true
		}
		if tag == "" {
			if !haveUntagged {
				untagged, haveUntagged = body, true
			}
			continue
		}
		for _, lang := range langs {
			if strings.EqualFold(tag, lang) {
				return body, true
			}
		}
	}
	return untagged, haveUntagged
}

var langsByExt = map[string][]string{
	".tsx":  {"tsx", "typescript", "ts", "jsx", "javascript", "js"},
	".ts":   {"ts", "typescript", "tsx"},
	".jsx":  {"jsx", "javascript", "js", "tsx"},
	".js":   {"js", "javascript", "jsx"},
	".mjs":  {"js", "javascript"},
	".py":   {"py", "python"},
	".go":   {"go", "golang"},
	".css":  {"css", "scss"},
	".scss": {"scss", "css"},
	".html": {"html", "htm"},
	".json": {"json"},
	".md":   {"md", "markdown"},
	".rs":   {"rs", "rust"},
	".sh":   {"sh", "bash", "shell"},
	".yaml": {"yaml", "yml"},
	".yml":  {"yaml", "yml"},
}

// LangsFor returns the fence tags a model is likely to use for filename.
// Unknown extensions yield the bare extension.
func LangsFor(filename string) []string {
	ext := strings.ToLower(filepath.Ext(filename))
	if langs, ok := langsByExt[ext]; ok {
		return langs
	}
	if ext == "" {
		return nil
	}
	return []string{strings.TrimPrefix(ext, ".")}
}
