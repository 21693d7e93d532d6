// Package version provides release-aware comparison of firmware version strings.
package version

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Result is the outcome of comparing an installed version against a release.
type Result int

const (
	// Incomparable means at least one side has no leading numeric component,
	// so no ordering can be established.
	Incomparable Result = iota
	Older
	Same
	Newer
)

func (r Result) String() string {
	switch r {
	case Older:
		return "older"
	case Same:
		return "same"
	case Newer:
		return "newer"
	default:
		return "incomparable"
	}
}

// Compare orders installed against latest.
//
// The leading dotted numeric tuple decides first, with missing components
// treated as zero ("12.4" equals "12.4.0"). A pre-release suffix introduced
// by "-" (e.g. "12.4.0-rc1") loses against the same tuple without a suffix.
// Trailing build annotations such as "(tasmota)" are ignored, matching the
// strings Tasmota devices report. A string without a leading numeric
// component yields Incomparable.
func Compare(installed, latest string) Result {
	it, ipre, ok := parse(installed)
	if !ok {
		return Incomparable
	}
	lt, lpre, ok := parse(latest)
	if !ok {
		return Incomparable
	}

	n := len(it)
	if len(lt) > n {
		n = len(lt)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(it) {
			a = it[i]
		}
		if i < len(lt) {
			b = lt[i]
		}
		if a < b {
			return Older
		}
		if a > b {
			return Newer
		}
	}

	switch {
	case ipre == lpre:
		return Same
	case ipre == "":
		return Newer
	case lpre == "":
		return Older
	}

	// Both are pre-releases of the same tuple. Defer to semver's
	// pre-release ordering rules.
	switch semver.Compare(canonical(it, ipre), canonical(lt, lpre)) {
	case -1:
		return Older
	case 1:
		return Newer
	default:
		return Same
	}
}

// parse splits a version string into its numeric tuple and pre-release
// suffix. Returns ok=false when there is no leading numeric component.
func parse(v string) (tuple []int, pre string, ok bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")

	i := 0
	for i < len(v) {
		start := i
		for i < len(v) && v[i] >= '0' && v[i] <= '9' {
			i++
		}
		if i == start {
			break
		}
		n, err := strconv.Atoi(v[start:i])
		if err != nil {
			return nil, "", false
		}
		tuple = append(tuple, n)
		if i < len(v) && v[i] == '.' {
			i++
			continue
		}
		break
	}
	if len(tuple) == 0 {
		return nil, "", false
	}

	rest := v[i:]
	if strings.HasPrefix(rest, "-") {
		pre = strings.TrimPrefix(rest, "-")
		// Strip annotations after the pre-release tag, e.g. "rc1(tasmota)".
		if j := strings.IndexAny(pre, "(+ "); j >= 0 {
			pre = pre[:j]
		}
	}
	return tuple, pre, true
}

// canonical renders the first three tuple components plus the pre-release
// tag in the form semver.Compare understands.
func canonical(tuple []int, pre string) string {
	parts := [3]int{}
	for i := 0; i < 3 && i < len(tuple); i++ {
		parts[i] = tuple[i]
	}
	s := "v" + strconv.Itoa(parts[0]) + "." + strconv.Itoa(parts[1]) + "." + strconv.Itoa(parts[2])
	if pre != "" {
		s += "-" + pre
	}
	return s
}

// NeedsUpdate reports whether a device on installed should be flashed to
// latest. Incomparable never counts as needing an update.
func NeedsUpdate(installed, latest string) bool {
	return Compare(installed, latest) == Older
}
