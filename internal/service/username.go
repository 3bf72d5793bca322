package service

import (
	"fmt"
	"math/rand"
	"strings"
)

const maxUsernameStem = 12

// DeriveUsername builds a username candidate for first-time OAuth logins:
// provider display name (or the email local-part) stripped to alphanumerics,
// lowercased, truncated, with a random numeric tag to reduce collision
// probability. Not a uniqueness guarantee; callers retry on conflict.
func DeriveUsername(displayName, email string) string {
	raw := displayName
	if raw == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			raw = email[:at]
		} else {
			raw = email
		}
	}

	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	stem := strings.ToLower(b.String())
	if len(stem) > maxUsernameStem {
		stem = stem[:maxUsernameStem]
	}
	if stem == "" {
		stem = "user"
	}

	return fmt.Sprintf("%s_%d", stem, rand.Intn(10000))
}
