package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

// passwordChars is the alphabet used for generated account passwords.
// It satisfies the backend's password complexity rules.
const passwordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!#$%&()*+,-.:=?@^_"

// RandomString creates a random base64url string from n bytes of entropy
func RandomString(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// GeneratePassword creates an opaque password for accounts provisioned on
// behalf of a federated identity. The password is handed to the backend at
// registration and used once for the immediate password-grant login; it is
// never stored by the gateway.
func GeneratePassword(length int) string {
	password := make([]byte, length)
	max := big.NewInt(int64(len(passwordChars)))
	for i := range password {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // crypto/rand failure is unrecoverable
		}
		password[i] = passwordChars[n.Int64()]
	}
	return string(password)
}
