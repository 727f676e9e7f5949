package transport

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet excludes visually confusable characters (I, O, 0, 1)
// because lobby codes are shared out of band, spoken or typed.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// GenerateCode returns a fresh session code of the form DT-XXXXXX.
// Uniqueness is the caller's problem; the hub retries on collision.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return "DT-" + string(code), nil
}
