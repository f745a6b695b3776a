package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Link verification failures.
var (
	ErrLinkInvalid = errors.New("invalid download link")
	ErrLinkExpired = errors.New("download link expired")
)

// LinkSigner issues and verifies HMAC signed download tokens of the form
// reportID.expiry.path.signature.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner constructs a signer. A non-positive ttl means one hour.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports how long issued links stay valid.
func (s *LinkSigner) TTL() time.Duration {
	return s.ttl
}

// Sign returns a token granting access to relPath until the returned expiry.
func (s *LinkSigner) Sign(reportID, relPath string) (string, time.Time, error) {
	if reportID == "" || relPath == "" || strings.Contains(reportID, ".") {
		return "", time.Time{}, fmt.Errorf("%w: report id and path required", ErrLinkInvalid)
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{reportID, ts, encodedPath, s.signature(reportID, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Verify checks the signature and expiry of token and returns what it grants.
func (s *LinkSigner) Verify(token string) (reportID, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 || len(s.secret) == 0 {
		return "", "", time.Time{}, ErrLinkInvalid
	}
	reportID, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.signature(reportID, ts, encodedPath)), []byte(signature)) {
		return "", "", time.Time{}, ErrLinkInvalid
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrLinkInvalid
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, ErrLinkInvalid
	}
	expiresAt = time.Unix(unix, 0).UTC()
	if s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrLinkExpired
	}
	return reportID, string(rawPath), expiresAt, nil
}

func (s *LinkSigner) signature(reportID, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(reportID + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
