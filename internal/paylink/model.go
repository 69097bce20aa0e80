package paylink

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// Link is a hash-locked, time-limited, single-use claim on escrowed funds.
// Once claimed it is immutable.
type Link struct {
	ID         string
	Creator    string
	Asset      string
	Amount     uint64
	SecretHash string
	Expiry     time.Time
	Claimed    bool
	ClaimedBy  string
	Refunded   bool
	CreatedAt  time.Time
}

// HashSecret returns the lowercase hex Keccak256 digest of the secret, the
// same construction wallets use to derive the lock from the shared secret.
func HashSecret(secret string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeHash canonicalizes a caller-supplied digest: optional 0x prefix
// stripped, lowercased. Returns false when it is not a 32-byte hex string.
func NormalizeHash(digest string) (string, bool) {
	digest = strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(digest, "0x"), "0X"))
	raw, err := hex.DecodeString(digest)
	if err != nil || len(raw) != 32 {
		return "", false
	}
	return digest, true
}
