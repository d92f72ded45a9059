package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Major())
	assert.Equal(t, uint64(2), v.Minor())
	assert.Equal(t, uint64(3), v.Patch())
	assert.Equal(t, "1.2.3", v.Core())
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	_, err := ParseVersion("not-a-version")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "version", perr.Kind)
}

func TestIsCore(t *testing.T) {
	assert.True(t, IsCore("3.1.2"))
	assert.False(t, IsCore("3.1.2-beta.1"))
	assert.False(t, IsCore("3.1.2+build.5"))
	assert.False(t, IsCore("not-a-version"))
}

func TestCompare(t *testing.T) {
	a, _ := ParseVersion("1.2.3")
	b, _ := ParseVersion("1.3.0")
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestParseRangeAndSatisfies(t *testing.T) {
	r, err := ParseRange(">=3.1.0 <4.0.0")
	require.NoError(t, err)

	in, _ := ParseVersion("3.1.2")
	out, _ := ParseVersion("4.0.0")
	tooLow, _ := ParseVersion("3.0.5")

	assert.True(t, r.Satisfies(in))
	assert.False(t, r.Satisfies(out))
	assert.False(t, r.Satisfies(tooLow))
}

func TestParseRangeOr(t *testing.T) {
	r, err := ParseRange("=1.0.0 || >=2.0.0 <3.0.0")
	require.NoError(t, err)

	v1, _ := ParseVersion("1.0.0")
	v2, _ := ParseVersion("2.5.0")
	v3, _ := ParseVersion("1.5.0")

	assert.True(t, r.Satisfies(v1))
	assert.True(t, r.Satisfies(v2))
	assert.False(t, r.Satisfies(v3))
}

func TestParseRangeRejectsGarbage(t *testing.T) {
	_, err := ParseRange("this is not a range")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "range", perr.Kind)
}

func TestSelectionKey(t *testing.T) {
	r, err := ParseRange(">=3.1.0 <4.0.0")
	require.NoError(t, err)
	key, err := r.SelectionKey()
	require.NoError(t, err)
	assert.Equal(t, "3.1", key)
}

func TestSelectionKeyExactMatch(t *testing.T) {
	r, err := ParseRange("=2.4.7")
	require.NoError(t, err)
	key, err := r.SelectionKey()
	require.NoError(t, err)
	assert.Equal(t, "2.4", key)
}

func TestSelectionKeyNoLowerBound(t *testing.T) {
	r, err := ParseRange("<4.0.0")
	require.NoError(t, err)
	_, err = r.SelectionKey()
	assert.Error(t, err)
}

func TestHighestSatisfying(t *testing.T) {
	r, err := ParseRange(">=3.1.0 <4.0.0")
	require.NoError(t, err)

	var candidates []Version
	for _, s := range []string{"2.9.0", "3.0.5", "3.1.2", "3.5.0", "4.0.0"} {
		v, _ := ParseVersion(s)
		candidates = append(candidates, v)
	}

	idx, ok := HighestSatisfying(candidates, r)
	require.True(t, ok)
	assert.Equal(t, "3.5.0", candidates[idx].String())
}

func TestHighestSatisfyingNoMatch(t *testing.T) {
	r, err := ParseRange(">=5.0.0")
	require.NoError(t, err)
	v, _ := ParseVersion("1.0.0")
	_, ok := HighestSatisfying([]Version{v}, r)
	assert.False(t, ok)
}
