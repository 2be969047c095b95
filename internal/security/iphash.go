package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashIP returns an HMAC-SHA256 digest of the client IP keyed by the
// deployment pepper, hex-encoded. Session rows store this digest instead of
// the raw address; the same address with the same pepper hashes equally, so
// digests remain comparable for anomaly checks.
func HashIP(ip, pepper string) string {
	if ip == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}

// IPHashEqual performs constant-time comparison of a provided IP's digest with
// a stored one.
func IPHashEqual(ip, pepper, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashIP(ip, pepper)), []byte(storedHash)) == 1
}
