package common

import "crypto/rand"

// GenerateRandByteArray returns n bytes from crypto/rand. It panics if the
// system random source fails, which leaves no safe way to continue.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray zeroes b in place. A nil slice is left alone.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
