package decode

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rodoku/fetch"
)

// Encrypted envelope wire format:
//
//	[prefix]ivBase64:shortCipherBase64:longCipherBase64
//
// The prefix is "arr:" (plaintext is a JSON array of paragraph strings),
// "str:" (plaintext is one paragraph), or absent (treated as "str:").
// The ciphertext handed to AES-GCM is the long half followed by the short
// half, concatenated byte for byte.
const (
	prefixArray  = "arr:"
	prefixString = "str:"

	envelopeParts = 3
	keyLength     = 32 // fixed 32-byte ASCII key
)

// DecryptError is returned for any malformed or unauthenticated envelope:
// wrong part count, non-base64 fields, bad key/IV length, or a failed GCM
// tag check. It always fails a single chapter, never the job.
type DecryptError struct {
	Reason string
	Err    error
}

func (e *DecryptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decrypt_error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decrypt_error: %s", e.Reason)
}

func (e *DecryptError) Unwrap() error {
	return e.Err
}

// IsDecryptError checks if an error is (or wraps) a DecryptError
func IsDecryptError(err error) (*DecryptError, bool) {
	var dErr *DecryptError
	if errors.As(err, &dErr) {
		return dErr, true
	}
	return nil, false
}

// Envelope is a parsed encrypted chapter payload.
type Envelope struct {
	IsArray bool
	iv      []byte
	short   []byte
	long    []byte
}

// IsEnvelope reports whether raw looks like the encrypted wire format. A
// payload without a prefix still counts when it splits into three base64
// fields; anything else is a plain document.
func IsEnvelope(raw string) bool {
	if strings.HasPrefix(raw, prefixArray) || strings.HasPrefix(raw, prefixString) {
		return true
	}
	parts := strings.Split(raw, ":")
	if len(parts) != envelopeParts {
		return false
	}
	for _, part := range parts {
		if _, err := base64.StdEncoding.DecodeString(part); err != nil {
			return false
		}
	}
	return true
}

// ParseEnvelope splits raw into its IV and ciphertext halves.
func ParseEnvelope(raw string) (*Envelope, error) {
	env := &Envelope{}

	switch {
	case strings.HasPrefix(raw, prefixArray):
		env.IsArray = true
		raw = strings.TrimPrefix(raw, prefixArray)
	case strings.HasPrefix(raw, prefixString):
		raw = strings.TrimPrefix(raw, prefixString)
	}

	parts := strings.Split(raw, ":")
	if len(parts) != envelopeParts {
		return nil, &DecryptError{Reason: fmt.Sprintf("expected %d envelope parts, got %d", envelopeParts, len(parts))}
	}

	var err error
	if env.iv, err = base64.StdEncoding.DecodeString(parts[0]); err != nil {
		return nil, &DecryptError{Reason: "iv is not valid base64", Err: err}
	}
	if env.short, err = base64.StdEncoding.DecodeString(parts[1]); err != nil {
		return nil, &DecryptError{Reason: "short ciphertext is not valid base64", Err: err}
	}
	if env.long, err = base64.StdEncoding.DecodeString(parts[2]); err != nil {
		return nil, &DecryptError{Reason: "long ciphertext is not valid base64", Err: err}
	}

	return env, nil
}

// Decrypt reassembles the ciphertext (long half first) and runs AES-GCM with
// the standard 128-bit authentication tag.
func (e *Envelope) Decrypt(key []byte) (string, error) {
	if len(key) != keyLength {
		return "", &DecryptError{Reason: fmt.Sprintf("key must be %d bytes, got %d", keyLength, len(key))}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &DecryptError{Reason: "cipher init failed", Err: err}
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", &DecryptError{Reason: "gcm init failed", Err: err}
	}

	if len(e.iv) != gcm.NonceSize() {
		return "", &DecryptError{Reason: fmt.Sprintf("iv must be %d bytes, got %d", gcm.NonceSize(), len(e.iv))}
	}

	ciphertext := make([]byte, 0, len(e.long)+len(e.short))
	ciphertext = append(ciphertext, e.long...)
	ciphertext = append(ciphertext, e.short...)

	plaintext, err := gcm.Open(nil, e.iv, ciphertext, nil)
	if err != nil {
		return "", &DecryptError{Reason: "authentication failed", Err: err}
	}

	return string(plaintext), nil
}

// DecodeEnvelope parses and decrypts raw, expanding the plaintext into
// paragraph strings according to the envelope's tag.
func DecodeEnvelope(chapterURL, raw string, key []byte) ([]string, error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	plaintext, err := env.Decrypt(key)
	if err != nil {
		return nil, err
	}

	if env.IsArray {
		var paragraphs []string
		if err := json.Unmarshal([]byte(plaintext), &paragraphs); err != nil {
			return nil, &fetch.ParseError{URL: chapterURL, Err: fmt.Errorf("envelope array is not valid JSON: %w", err)}
		}
		return paragraphs, nil
	}

	return []string{plaintext}, nil
}
