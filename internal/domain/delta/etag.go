package delta

import (
	"fmt"
	"strconv"
	"strings"
)

// ETags are weak validators over the job's version counter, formatted as
// W/"job:<version>". The version is bumped in the same transaction as each
// applied delta, so an ETag match guarantees the caller saw the latest
// committed state.

const (
	etagPrefix = `W/"job:`
	etagSuffix = `"`
)

// FormatETag renders a version counter as a weak ETag token.
func FormatETag(version int64) string {
	return etagPrefix + strconv.FormatInt(version, 10) + etagSuffix
}

// ParseETag extracts the version counter from a token produced by
// FormatETag. Surrounding whitespace is tolerated; everything else about
// the format is strict.
func ParseETag(token string) (int64, error) {
	s := strings.TrimSpace(token)
	if !strings.HasPrefix(s, etagPrefix) || !strings.HasSuffix(s, etagSuffix) {
		return 0, fmt.Errorf("malformed etag %q", token)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, etagPrefix), etagSuffix)
	version, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed etag version %q: %w", token, err)
	}
	if version < 1 {
		return 0, fmt.Errorf("etag version must be positive, got %d", version)
	}
	return version, nil
}

// MatchETag reports whether token matches the given live version.
// A malformed token never matches.
func MatchETag(token string, version int64) bool {
	v, err := ParseETag(token)
	return err == nil && v == version
}
