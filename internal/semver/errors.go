package semver

import "errors"

var (
	errEmptyRange          = errors.New("range expression is empty")
	errEmptyComparatorSet  = errors.New("comparator set is empty")
	errMalformedComparator = errors.New("malformed comparator token")
	errNoComparatorSets    = errors.New("range has no comparator sets")
	errNoLowerBound        = errors.New("first comparator set has no lower bound")
)
