// Package otp generates the one-time passcodes sent to patients over SMS.
package otp

import (
	"crypto/rand"
	"math/big"
)

// codeSpace is the number of valid 6-digit codes (100000–999999).
var codeSpace = big.NewInt(900000)

// Generate returns a 6-digit numeric passcode uniform over 100000–999999.
// crypto/rand.Int rejection-samples internally, so no value is favored.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	code := n.Int64() + 100000
	buf := [6]byte{}
	for i := 5; i >= 0; i-- {
		buf[i] = byte('0' + code%10)
		code /= 10
	}
	return string(buf[:]), nil
}
