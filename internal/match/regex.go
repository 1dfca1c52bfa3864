package match

import (
	"regexp"
	"sync"
)

// compiled caches both successful and failed compilations. Rule files are
// authored by hand; a pattern that fails once fails forever and must not be
// recompiled on every event.
type compiled struct {
	re  *regexp.Regexp
	err error
}

var regexCache sync.Map // string -> compiled

// Compile compiles expr, caching the result. A failed compile is returned as
// an error every time without recompiling.
func Compile(expr string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(expr); ok {
		c := v.(compiled)
		return c.re, c.err
	}
	re, err := regexp.Compile(expr)
	regexCache.Store(expr, compiled{re: re, err: err})
	return re, err
}

// MatchString reports whether expr matches s. Invalid expressions never match.
func MatchString(expr, s string) bool {
	re, err := Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
