package platform

import "crypto/rand"

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultTokenLength is the length of generated secret access tokens.
const DefaultTokenLength = 16

// maxUnbiased is the largest multiple of len(tokenAlphabet) that fits in a
// byte. Random bytes at or above it are discarded.
const maxUnbiased = 256 - 256%len(tokenAlphabet)

// NewSecretToken returns a random alphanumeric string of length n, suitable
// as the deploy script's secret access token. It panics if n < 1.
func NewSecretToken(n int) string {
	if n < 1 {
		panic("platform: token length must be positive")
	}
	return newToken(n, randomBytes)
}

func newToken(n int, read func([]byte)) string {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		read(buf)
		for _, c := range buf {
			if int(c) >= maxUnbiased {
				continue
			}
			out = append(out, tokenAlphabet[int(c)%len(tokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}

func randomBytes(b []byte) {
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
}
