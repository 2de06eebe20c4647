package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatETag(t *testing.T) {
	assert.Equal(t, `W/"job:1"`, FormatETag(1))
	assert.Equal(t, `W/"job:42"`, FormatETag(42))
}

func TestParseETag_RoundTrip(t *testing.T) {
	for _, v := range []int64{1, 7, 123456789} {
		got, err := ParseETag(FormatETag(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestParseETag_ToleratesWhitespace(t *testing.T) {
	got, err := ParseETag(`  W/"job:7"  `)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
}

func TestParseETag_Malformed(t *testing.T) {
	bad := []string{
		"",
		`"job:1"`,
		`W/"job:"`,
		`W/"job:abc"`,
		`W/"job:0"`,
		`W/"job:-3"`,
		`W/"session:1"`,
		`W/"job:1`,
	}
	for _, token := range bad {
		_, err := ParseETag(token)
		assert.Error(t, err, token)
	}
}

func TestMatchETag(t *testing.T) {
	assert.True(t, MatchETag(`W/"job:9"`, 9))
	assert.False(t, MatchETag(`W/"job:9"`, 10))
	assert.False(t, MatchETag(`garbage`, 9))
}
