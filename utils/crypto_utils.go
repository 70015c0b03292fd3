package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

func BytesToHex(bytes []byte) string {
	return hex.EncodeToString(bytes)
}

// Hash message using SHA256
func SHA256(msg []byte) []byte {
	digest := sha256.Sum256(msg)
	return digest[:]
}

// SHA256Hex returns the hex encoded SHA256 digest of msg.
func SHA256Hex(msg []byte) string {
	return BytesToHex(SHA256(msg))
}
