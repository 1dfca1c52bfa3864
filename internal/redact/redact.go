package redact

import (
	"regexp"
	"strings"
)

// Check output and audit records are written to disk inside the project, so
// anything resembling a credential is masked first.
var secretPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"aws-key-assignment", regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`)},
	{"aws-access-key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"github-token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`)},
	{"github-assignment", regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`)},
	{"npm-token", regexp.MustCompile(`npm_[A-Za-z0-9]{36}`)},
	{"api-key-assignment", regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`)},
	{"private-key", regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},
	{"bearer", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`)},
	{"url-credentials", regexp.MustCompile(`(https?|postgres(ql)?|mysql|mongodb(\+srv)?|redis)://[^:/\s]+:[^@\s]+@`)},
	{"slack-token", regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`)},
	{"stripe-key", regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24}`)},
	{"password-assignment", regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`)},
}

const redactedPlaceholder = "[REDACTED]"

// Redact masks every credential-looking substring in input.
func Redact(input string) string {
	result := input
	for _, p := range secretPatterns {
		result = p.re.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}

// Output redacts captured command output and keeps at most maxBytes from its
// end, since failures are usually reported last. maxBytes <= 0 keeps all.
func Output(output string, maxBytes int) string {
	output = Redact(strings.TrimRight(output, "\n"))
	if maxBytes <= 0 || len(output) <= maxBytes {
		return output
	}

	tail := output[len(output)-maxBytes:]
	if i := strings.IndexByte(tail, '\n'); i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return "... (truncated)\n" + tail
}
