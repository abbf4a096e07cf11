package credstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"bearer/pkg/oauth"
)

// recordVersion is the schema version written to new records. Loaders reject
// versions they do not understand so a future schema change cannot be
// misread as token material.
const recordVersion = 1

// Record is the persisted form of a credential.
type Record struct {
	// Version is the record schema version.
	Version int `json:"version"`

	// AccessToken is the OAuth access token.
	AccessToken string `json:"access_token"`

	// RefreshToken is the OAuth refresh token (if granted).
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// Expiry is when the access token expires. Zero means no known expiry.
	Expiry time.Time `json:"expiry,omitempty"`

	// Scope is the granted scope(s), space-separated.
	Scope string `json:"scope,omitempty"`

	// Issuer is the identity provider the credential came from.
	Issuer string `json:"issuer,omitempty"`

	// CreatedAt is when the record was stored.
	CreatedAt time.Time `json:"created_at"`

	// Checksum covers the token material so partially written records are
	// detected and treated as absent.
	Checksum string `json:"checksum"`
}

// NewRecord builds a versioned, checksummed record from a token.
func NewRecord(issuer string, token *oauth.Token) *Record {
	rec := &Record{
		Version:      recordVersion,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.ExpiresAt,
		Scope:        token.Scope,
		Issuer:       issuer,
		CreatedAt:    time.Now(),
	}
	rec.Checksum = rec.checksum()
	return rec
}

// Token converts the record back to a token.
func (r *Record) Token() *oauth.Token {
	return &oauth.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresAt:    r.Expiry,
		Scope:        r.Scope,
	}
}

// checksum computes the integrity checksum over the token material.
// Expiry is folded in at second precision, which survives JSON round trips.
func (r *Record) checksum() string {
	h := sha256.New()
	h.Write([]byte(r.AccessToken))
	h.Write([]byte{0})
	h.Write([]byte(r.RefreshToken))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(r.Expiry.Unix(), 10)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// verify reports whether the record is complete and untampered.
func (r *Record) verify() error {
	if r.Version != recordVersion {
		return fmt.Errorf("unsupported record version %d", r.Version)
	}
	if r.AccessToken == "" {
		return fmt.Errorf("record has no access token")
	}
	if r.Checksum != r.checksum() {
		return fmt.Errorf("record checksum mismatch")
	}
	return nil
}

// encodeRecord marshals a record for persistence.
func encodeRecord(rec *Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credential record: %w", err)
	}
	return data, nil
}

// decodeRecord unmarshals and verifies a persisted record.
func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential record: %w", err)
	}
	if err := rec.verify(); err != nil {
		return nil, err
	}
	return &rec, nil
}
