package auth

import "golang.org/x/crypto/bcrypt"

// HashAPIKey produces the value stored in merchant_api_credentials.api_key_hash.
func HashAPIKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyAPIKey(key, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}
