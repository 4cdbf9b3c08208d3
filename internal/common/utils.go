package common

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandByteArray returns size bytes drawn from crypto/rand.
// It panics if the system CSPRNG fails, which is unrecoverable anyway.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandHexString generates size random bytes and returns them hex encoded,
// so the result is twice as long as size.
//
// Example:
//
//	s, err := MakeRandHexString(32)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(s) // suitable for ENCRYPTION_KEY or JWT_SECRET
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Used to scrub key material that was
// only needed during construction. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
