package match

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gzhole/skillguard/internal/rules"
)

func TestGlob(t *testing.T) {
	tests := []struct {
		glob string
		path string
		want bool
	}{
		{"src/**/*.ts", "src/a/b/c.ts", true},
		{"src/**/*.ts", "src/x.ts", true},
		{"src/**/*.ts", "test/x.ts", false},
		{"src/**/*.ts", "src/a/b/c.tsx", false},
		{"**/test/**", "test/x.ts", true},
		{"**/test/**", "pkg/a/test/b/c.go", true},
		{"**/test/**", "pkg/testing/c.go", false},
		{"**/schema.sql", "migrations/schema.sql", true},
		{"**/schema.sql", "schema.sql", true},
		{"*.md", "README.md", true},
		{"*.md", "docs/README.md", false},
		{"docs/**", "docs/a/b/c.md", true},
		{"SRC/*.TS", "src/index.ts", true},
		{"api/(v1)/*.ts", "api/(v1)/index.ts", true},
		{"api/(v1)/*.ts", "api/v1/index.ts", false},
		{"a+b.txt", "aab.txt", false},
	}

	for _, tt := range tests {
		if got := Glob(tt.glob, tt.path); got != tt.want {
			t.Errorf("Glob(%q, %q) = %v, want %v (pattern %s)", tt.glob, tt.path, got, tt.want, GlobToPattern(tt.glob))
		}
	}
}

func TestPrompt(t *testing.T) {
	triggers := &rules.PromptTriggers{
		Keywords:       []string{"React", "database"},
		IntentPatterns: []string{`(create|add).*?(page|route)`, `([unclosed`},
	}

	tests := []struct {
		text string
		want bool
	}{
		{"Please build a REACT component", true},
		{"migrate the Database schema", true},
		{"Create a new settings Page", true},
		{"ADD ROUTE for billing", true},
		{"refactor the logger", false},
		{"touch the data\u200Bbase layer", true},
		{"\u202Ecreate\u202C a page", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := Prompt(tt.text, triggers); got != tt.want {
			t.Errorf("Prompt(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	if Prompt("anything", nil) {
		t.Error("nil triggers must never match")
	}
}

func TestPrompt_Idempotent(t *testing.T) {
	triggers := &rules.PromptTriggers{IntentPatterns: []string{`fix.*bug`}}
	for i := 0; i < 3; i++ {
		if !Prompt("Fix the login BUG", triggers) {
			t.Fatalf("run %d: expected match", i)
		}
	}
}

func TestCompile_CachesFailure(t *testing.T) {
	_, err1 := Compile("(bad")
	_, err2 := Compile("(bad")
	if err1 == nil || err2 == nil {
		t.Fatal("expected compile errors")
	}
	if err1 != err2 {
		t.Error("expected the cached error to be returned on the second call")
	}
	if MatchString("(bad", "(bad") {
		t.Error("invalid expressions must never match")
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFileTrigger(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "migrations/schema.sql", "CREATE TABLE users (id int);")
	writeFile(t, root, "migrations/seed.sql", "INSERT INTO users VALUES (1);")
	writeFile(t, root, "migrations/fixtures/schema.sql", "CREATE TABLE t (id int);")

	rule := rules.SkillRule{
		Enforcement: rules.EnforceBlock,
		FileTriggers: &rules.FileTriggers{
			PathPatterns:    []string{"migrations/**/*.sql"},
			PathExclusions:  []string{"**/fixtures/**"},
			ContentPatterns: []string{`CREATE\s+TABLE`, `([broken`},
		},
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"content match", "migrations/schema.sql", true},
		{"absolute path", filepath.Join(root, "migrations", "schema.sql"), true},
		{"content mismatch", "migrations/seed.sql", false},
		{"exclusion wins", "migrations/fixtures/schema.sql", false},
		{"path mismatch", "src/schema.sql", false},
		{"unreadable fails open", "migrations/deleted.sql", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileTrigger(root, tt.path, rule); got != tt.want {
				t.Errorf("FileTrigger(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFileTrigger_Defaults(t *testing.T) {
	root := t.TempDir()

	openRule := rules.SkillRule{FileTriggers: &rules.FileTriggers{}}
	if !FileTrigger(root, "anything/at/all.go", openRule) {
		t.Error("empty pathPatterns should match every path")
	}

	excludeOnly := rules.SkillRule{FileTriggers: &rules.FileTriggers{PathExclusions: []string{"**/*.md"}}}
	if FileTrigger(root, "docs/readme.md", excludeOnly) {
		t.Error("exclusion should override the open default")
	}

	if FileTrigger(root, "a.go", rules.SkillRule{}) {
		t.Error("a rule without file triggers must never match")
	}
}
