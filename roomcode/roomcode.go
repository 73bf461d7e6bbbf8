package roomcode

import (
	"crypto/rand"
	"io"
	"math/big"
)

// Alphabet omits look-alike characters (0/O, 1/l/I).
const (
	Alphabet    = "23456789abcdefghjkmnpqrstuvwxyz"
	Length      = 4
	maxAttempts = 10
)

// Generate returns a code for which exists reports false. After maxAttempts
// collisions the last candidate is extended by one character.
func Generate(exists func(code string) (bool, error)) (string, error) {
	return generate(rand.Reader, exists)
}

func generate(r io.Reader, exists func(code string) (bool, error)) (string, error) {
	var code string
	for i := 0; i < maxAttempts; i++ {
		c, err := randomString(r, Length)
		if err != nil {
			return "", err
		}
		code = c
		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	extra, err := randomString(r, 1)
	if err != nil {
		return "", err
	}
	return code + extra, nil
}

func randomString(r io.Reader, length int) (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}
