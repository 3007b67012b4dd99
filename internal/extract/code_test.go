package extract

import (
	"reflect"
	"testing"
)

func TestCodeBlock(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		langs  []string
		want   string
		wantOK bool
	}{
		{
			name:   "matching tag",
			input:  "Here you go:\n```tsx\nexport default function App() {}\n```\nDone.",
			langs:  []string{"tsx"},
			want:   "export default function App() {}",
			wantOK: true,
		},
		{
			name:   "skips other languages",
			input:  "```bash\nnpm i\n```\n```TSX\nconst a = 1;\n```",
			langs:  []string{"tsx", "typescript"},
			want:   "const a = 1;",
			wantOK: true,
		},
		{
			name:   "untagged fallback",
			input:  "```\nplain\n```",
			langs:  []string{"py"},
			want:   "plain",
			wantOK: true,
		},
		{
			name:   "tag with attributes",
			input:  "```tsx title=\"App.tsx\"\n  indented();\n```",
			langs:  []string{"tsx"},
			want:   "  indented();",
			wantOK: true,
		},
		{
			name:   "no langs takes first fence",
			input:  "```css\nbody{}\n```",
			want:   "body{}",
			wantOK: true,
		},
		{name: "no fence", input: "just prose", langs: []string{"tsx"}, wantOK: false},
		{name: "wrong language only", input: "```python\nx=1\n```", langs: []string{"tsx"}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CodeBlock(tt.input, tt.langs...)
			if ok != tt.wantOK {
				t.Fatalf("CodeBlock() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("CodeBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLangsFor(t *testing.T) {
	tests := []struct {
		filename string
		want     []string
	}{
		{"src/App.tsx", []string{"tsx", "typescript", "ts", "jsx", "javascript", "js"}},
		{"main.PY", []string{"py", "python"}},
		{"lib/thing.zig", []string{"zig"}},
		{"Makefile", nil},
	}

	for _, tt := range tests {
		if got := LangsFor(tt.filename); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("LangsFor(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}
