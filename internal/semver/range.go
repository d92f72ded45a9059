package semver

import (
	"regexp"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
)

// Range is a parsed version-range expression: comparator sets joined by
// "||" (OR), each set itself a space-separated AND of comparators using
// =, <, <=, >, >= (spec §4.A).
type Range struct {
	raw        string
	constraint *mmsemver.Constraints
	sets       [][]comparator
}

type comparator struct {
	op      string
	version Version
}

var comparatorPattern = regexp.MustCompile(`^(>=|<=|>|<|=)?\s*(.+)$`)

// ParseRange parses a range expression. Whitespace is trimmed; "||" splits
// OR'd comparator sets, and each set is an AND of space-separated
// comparators.
func ParseRange(s string) (*Range, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, &ParseError{Input: s, Kind: "range", Err: errEmptyRange}
	}

	constraint, err := mmsemver.NewConstraint(trimmed)
	if err != nil {
		return nil, &ParseError{Input: s, Kind: "range", Err: err}
	}

	sets, err := parseComparatorSets(trimmed)
	if err != nil {
		return nil, &ParseError{Input: s, Kind: "range", Err: err}
	}

	return &Range{raw: trimmed, constraint: constraint, sets: sets}, nil
}

// Satisfies reports whether v satisfies the range, using
// Masterminds/semver's Constraints.Check for the actual SemVer 2.0.0
// comparison and pre-release visibility rules.
func (r *Range) Satisfies(v Version) bool {
	return r.constraint.Check(v.v)
}

// String returns the original (trimmed) range expression.
func (r *Range) String() string { return r.raw }

// SelectionKey returns "MAJOR.MINOR" of the lower bound of the first
// comparator set's minimum satisfying version (spec §4.A). The lower bound
// is whichever of "=", ">=", ">" appears in that set; a set with only upper
// bounds (e.g. "<4.0.0") has no defined lower bound and yields an error.
func (r *Range) SelectionKey() (string, error) {
	if len(r.sets) == 0 {
		return "", &ParseError{Input: r.raw, Kind: "range", Err: errNoComparatorSets}
	}
	first := r.sets[0]

	for _, preferred := range []string{"=", ">=", ">"} {
		for _, c := range first {
			if c.op == preferred {
				return minorKey(c.version), nil
			}
		}
	}
	return "", &ParseError{Input: r.raw, Kind: "range", Err: errNoLowerBound}
}

func minorKey(v Version) string {
	return itoa(v.Major()) + "." + itoa(v.Minor())
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// parseComparatorSets splits a range expression into OR'd AND-sets of
// comparators, parsing each comparator's version with the same strict
// parser used for standalone versions.
func parseComparatorSets(s string) ([][]comparator, error) {
	var sets [][]comparator

	for _, orPart := range strings.Split(s, "||") {
		orPart = strings.TrimSpace(orPart)
		if orPart == "" {
			return nil, errEmptyComparatorSet
		}

		var set []comparator
		for _, tok := range strings.Fields(orPart) {
			m := comparatorPattern.FindStringSubmatch(tok)
			if m == nil {
				return nil, errMalformedComparator
			}
			op := m[1]
			if op == "" {
				op = "="
			}
			v, err := ParseVersion(m[2])
			if err != nil {
				return nil, err
			}
			set = append(set, comparator{op: op, version: v})
		}
		if len(set) == 0 {
			return nil, errEmptyComparatorSet
		}
		sets = append(sets, set)
	}

	return sets, nil
}
