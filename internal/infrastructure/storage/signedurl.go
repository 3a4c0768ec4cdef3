package storage

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const amzDateLayout = "20060102T150405Z"

// URLExpiry decodes the expiry timestamp embedded in a signed URL. Staleness
// is always recognized from the URL itself, never from a separate flag.
//
// Supported shapes: SigV4 presigned URLs (X-Amz-Date + X-Amz-Expires) and
// local HMAC URLs (Expires epoch seconds).
func URLExpiry(raw string) (time.Time, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse signed url: %w", err)
	}
	q := u.Query()

	if date := q.Get("X-Amz-Date"); date != "" {
		issued, err := time.Parse(amzDateLayout, date)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse X-Amz-Date: %w", err)
		}
		seconds, err := strconv.ParseInt(q.Get("X-Amz-Expires"), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse X-Amz-Expires: %w", err)
		}
		return issued.Add(time.Duration(seconds) * time.Second), nil
	}

	if epoch := q.Get("Expires"); epoch != "" {
		seconds, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse Expires: %w", err)
		}
		return time.Unix(seconds, 0), nil
	}

	return time.Time{}, fmt.Errorf("url carries no expiry parameter")
}

// URLExpiresWithin reports whether the signed URL expires before now+window.
// Unparseable URLs count as expired so they get refreshed rather than served.
func URLExpiresWithin(raw string, window time.Duration, now time.Time) bool {
	expiry, err := URLExpiry(raw)
	if err != nil {
		return true
	}
	return expiry.Before(now.Add(window))
}
