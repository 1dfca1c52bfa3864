package enforce

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gzhole/skillguard/internal/rules"
)

// Render lists matches by level: suggest, then warn, then block. Within a
// level skills are ordered by priority and then by name. Block lines carry
// a label saying whether the block is enforced.
func Render(ms []Match, enforcing bool) string {
	var sb strings.Builder

	line := func(label string, group []Match, suffix string) {
		if len(group) == 0 {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s %s%s", label, strings.Join(matchNames(sortByPriority(group)), ", "), suffix)
	}

	line("[SUGGEST]", byLevel(ms, rules.EnforceSuggest), "")
	line("[WARN]", byLevel(ms, rules.EnforceWarn), "")
	if enforcing {
		line("[BLOCK]", byLevel(ms, rules.EnforceBlock), " (active block)")
	} else {
		line("[BLOCK-SHADOW]", byLevel(ms, rules.EnforceBlock), " (would-block, not enforced)")
	}
	return sb.String()
}

func sortByPriority(ms []Match) []Match {
	sorted := append([]Match(nil), ms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Rule.Rank(), sorted[j].Rule.Rank()
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Skill < sorted[j].Skill
	})
	return sorted
}
