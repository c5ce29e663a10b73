package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash returns the SHA-256 digest of data
func Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// HexHash returns the lowercase hex SHA-256 digest of data
func HexHash(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// VerifyHexHash reports whether data matches a hex SHA-256 digest (case insensitive)
func VerifyHexHash(data []byte, expected string) bool {
	return HexHash(data) == strings.ToLower(expected)
}
