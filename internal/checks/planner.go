// Package checks plans and runs the validation commands a session should
// pass before it is considered done.
package checks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/gzhole/skillguard/internal/normalize"
)

const manifestFile = "package.json"

// placeholderTest is the test script npm init writes.
const placeholderTest = "no test specified"

// Plan is one validation command and the directory it runs in.
type Plan struct {
	Dir     string `json:"dir" yaml:"dir"`
	Command string `json:"command" yaml:"command"`
}

// PackageManager describes how to invoke scripts and binaries for one
// lockfile flavour.
type PackageManager struct {
	Name string
	Run  string // prefix for a declared script
	Exec string // prefix for a package binary
}

// Lockfiles in precedence order. The first one present decides.
var packageManagers = []struct {
	lockfiles []string
	pm        PackageManager
}{
	{[]string{"pnpm-lock.yaml"}, PackageManager{Name: "pnpm", Run: "pnpm run", Exec: "pnpm exec"}},
	{[]string{"yarn.lock"}, PackageManager{Name: "yarn", Run: "yarn", Exec: "yarn"}},
	{[]string{"bun.lockb", "bun.lock"}, PackageManager{Name: "bun", Run: "bun run", Exec: "bunx"}},
	{[]string{"package-lock.json"}, PackageManager{Name: "npm", Run: "npm run", Exec: "npx"}},
}

var npm = PackageManager{Name: "npm", Run: "npm run", Exec: "npx"}

// Script groups in run order. Within a group the first declared name wins.
var scriptGroups = [][]string{
	{"typecheck", "type-check", "check-types"},
	{"lint"},
	{"test"},
	{"build"},
}

var prismaSchemas = []string{filepath.Join("prisma", "schema.prisma"), "schema.prisma"}

// Planner turns a session's edited paths into check plans.
type Planner struct {
	root string
	max  int
}

// NewPlanner returns a planner for projectRoot producing at most max plans.
func NewPlanner(projectRoot string, max int) *Planner {
	root := filepath.Clean(projectRoot)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Planner{root: root, max: max}
}

// Plan returns the deduplicated plans for edited, in discovery order,
// truncated to the planner's maximum.
func (p *Planner) Plan(edited []string) []Plan {
	if p.max <= 0 {
		return nil
	}

	var roots []string
	for _, path := range edited {
		if dir, ok := p.manifestRoot(path); ok {
			roots = append(roots, dir)
		}
	}
	roots = normalize.UniqueStrings(roots)

	var plans []Plan
	seen := make(map[Plan]bool)
	for _, dir := range roots {
		for _, plan := range PlanDir(dir) {
			if seen[plan] {
				continue
			}
			seen[plan] = true
			plans = append(plans, plan)
		}
	}

	if len(plans) > p.max {
		plans = plans[:p.max]
	}
	return plans
}

// manifestRoot walks up from path's directory to the project root looking
// for the nearest manifest. Paths outside the project, or inside it with no
// enclosing manifest, fall back to the project root when it has one.
func (p *Planner) manifestRoot(path string) (string, bool) {
	np := normalize.Path(p.root, path)
	if np.Abs == "" {
		return "", false
	}

	if np.Inside {
		dir := filepath.Dir(np.Abs)
		for {
			if fileExists(filepath.Join(dir, manifestFile)) {
				return dir, true
			}
			if dir == p.root {
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if fileExists(filepath.Join(p.root, manifestFile)) {
		return p.root, true
	}
	return "", false
}

// PlanDir returns the checks for a single package directory.
func PlanDir(dir string) []Plan {
	pm := DetectPackageManager(dir)
	scripts := readScripts(dir)

	var plans []Plan
	add := func(command string) {
		plans = append(plans, Plan{Dir: dir, Command: command})
	}

	for i, group := range scriptGroups {
		name, ok := firstScript(scripts, group)
		if ok {
			if cmd, err := scriptCommand(pm, name); err == nil {
				add(cmd)
			}
			continue
		}
		if i == 0 && fileExists(filepath.Join(dir, "tsconfig.json")) {
			add(pm.Exec + " tsc --noEmit")
		}
	}

	for _, schema := range prismaSchemas {
		if fileExists(filepath.Join(dir, schema)) {
			add(pm.Exec + " prisma generate")
			break
		}
	}
	return plans
}

// DetectPackageManager picks the package manager from the lockfile present
// in dir, defaulting to npm.
func DetectPackageManager(dir string) PackageManager {
	for _, candidate := range packageManagers {
		for _, lock := range candidate.lockfiles {
			if fileExists(filepath.Join(dir, lock)) {
				return candidate.pm
			}
		}
	}
	return npm
}

func scriptCommand(pm PackageManager, name string) (string, error) {
	quoted, err := syntax.Quote(name, syntax.LangBash)
	if err != nil {
		return "", err
	}
	return pm.Run + " " + quoted, nil
}

func firstScript(scripts map[string]string, names []string) (string, bool) {
	for _, name := range names {
		body, ok := scripts[name]
		if !ok {
			continue
		}
		if name == "test" && strings.Contains(body, placeholderTest) {
			continue
		}
		return name, true
	}
	return "", false
}

// readScripts returns the string-valued scripts of dir's manifest. An
// unreadable or malformed manifest has no scripts.
func readScripts(dir string) map[string]string {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil
	}

	var manifest struct {
		Scripts map[string]any `json:"scripts"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	scripts := make(map[string]string, len(manifest.Scripts))
	for name, v := range manifest.Scripts {
		if s, ok := v.(string); ok {
			scripts[name] = s
		}
	}
	return scripts
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
