package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
)

// Version tags a serialization format.
type Version uint16

const (
	// FormatLegacy is AES-256-CBC with PKCS#7 padding, serialized as
	// base64(ciphertext) + ":i" + hex(iv). It carries no header; the ":i"
	// separator identifies it and implies version 0.
	FormatLegacy Version = 0

	// FormatGCM is AES-256-GCM serialized as base64 of
	// [u16 big-endian version][12-byte nonce][ciphertext+tag].
	FormatGCM Version = 1
)

const (
	legacyIVSeparator = ":i"
	gcmNonceSize      = 12
	versionHeaderSize = 2
)

var (
	ErrUnknownVersion = errors.New("unknown format version")
	ErrMalformed      = errors.New("malformed ciphertext")
	ErrInvalidKey     = errors.New("invalid key size")
	ErrInvalidIV      = errors.New("invalid iv size")
)

// Options controls Encrypt. A nil IV means a random one. For FormatLegacy the
// IV must be 16 bytes, for FormatGCM 12 bytes.
type Options struct {
	IV      []byte
	Version Version
}

// Encrypt encrypts plaintext under key using the format named by opts.Version.
func Encrypt(key, plaintext []byte, opts Options) (string, error) {
	if len(key) != KeySize {
		return "", ErrInvalidKey
	}

	switch opts.Version {
	case FormatLegacy:
		return encryptLegacy(key, plaintext, opts.IV)
	case FormatGCM:
		return encryptGCM(key, plaintext, opts.IV)
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownVersion, opts.Version)
	}
}

// Decrypt reverses Encrypt, picking the format from the embedded version tag.
func Decrypt(key []byte, token string) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	v, err := FormatVersion(token)
	if err != nil {
		return nil, err
	}

	switch v {
	case FormatLegacy:
		return decryptLegacy(key, token)
	case FormatGCM:
		return decryptGCM(key, token)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, v)
	}
}

// FormatVersion reports the serialization version embedded in token.
func FormatVersion(token string) (Version, error) {
	if strings.Contains(token, legacyIVSeparator) {
		return FormatLegacy, nil
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil || len(raw) < versionHeaderSize {
		return 0, ErrMalformed
	}
	return Version(binary.BigEndian.Uint16(raw[:versionHeaderSize])), nil
}

func encryptLegacy(key, plaintext, iv []byte) (string, error) {
	if iv == nil {
		iv = common.GenerateRandByteArray(IVSize)
	}
	if len(iv) != IVSize {
		return "", ErrInvalidIV
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext) + legacyIVSeparator + hex.EncodeToString(iv), nil
}

func decryptLegacy(key []byte, token string) ([]byte, error) {
	ctPart, ivPart, ok := strings.Cut(token, legacyIVSeparator)
	if !ok {
		return nil, ErrMalformed
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ctPart)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrMalformed
	}
	iv, err := hex.DecodeString(ivPart)
	if err != nil || len(iv) != IVSize {
		return nil, ErrInvalidIV
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

func encryptGCM(key, plaintext, nonce []byte) (string, error) {
	if nonce == nil {
		nonce = common.GenerateRandByteArray(gcmNonceSize)
	}
	if len(nonce) != gcmNonceSize {
		return "", ErrInvalidIV
	}

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	out := make([]byte, versionHeaderSize, versionHeaderSize+gcmNonceSize+len(plaintext)+aead.Overhead())
	binary.BigEndian.PutUint16(out, uint16(FormatGCM))
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(out), nil
}

func decryptGCM(key []byte, token string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil || len(raw) < versionHeaderSize+gcmNonceSize {
		return nil, ErrMalformed
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := raw[versionHeaderSize : versionHeaderSize+gcmNonceSize]
	ciphertext := raw[versionHeaderSize+gcmNonceSize:]

	// the version header is not authenticated separately; a flipped header
	// fails the version switch before reaching here
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrMalformed
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrMalformed
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrMalformed
		}
	}
	return b[:len(b)-n], nil
}
