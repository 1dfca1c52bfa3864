package checks

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gzhole/skillguard/internal/redact"
)

// failureTail bounds how much output of a failed check is echoed back.
const failureTail = 1500

// DisplayDir returns dir relative to projectRoot, or "." for the root.
func DisplayDir(projectRoot, dir string) string {
	rel, err := filepath.Rel(projectRoot, dir)
	if err != nil {
		return filepath.ToSlash(dir)
	}
	return filepath.ToSlash(rel)
}

// FormatPlans renders a plan list under the [STOP CHECK PLAN] header.
func FormatPlans(projectRoot string, plans []Plan) string {
	var sb strings.Builder
	sb.WriteString("[STOP CHECK PLAN]")
	for _, p := range plans {
		fmt.Fprintf(&sb, "\n%s: %s", DisplayDir(projectRoot, p.Dir), p.Command)
	}
	return sb.String()
}

// FormatResults renders pass/fail per command under the [STOP CHECKS]
// header, followed by the redacted tail of each failure's output.
func FormatResults(projectRoot string, results []Result) string {
	var sb strings.Builder
	sb.WriteString("[STOP CHECKS]")
	for _, r := range results {
		status := "OK"
		if !r.OK {
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "\n%s %s: %s", status, DisplayDir(projectRoot, r.Plan.Dir), r.Plan.Command)
	}

	for _, r := range results {
		if r.OK || r.Output == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n\n--- %s (%s) ---\n%s",
			r.Plan.Command, DisplayDir(projectRoot, r.Plan.Dir), redact.Output(r.Output, failureTail))
	}
	return sb.String()
}

// Failed counts failing results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK {
			n++
		}
	}
	return n
}
