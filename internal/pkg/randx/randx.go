/*
Package randx provides cryptographically secure random identifier helpers.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set.
	Base62Len = int64(len(Base62Chars))
)

// base62String returns a random Base62 string of the given length, backed by crypto/rand.
func base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// DisplayName generates a fallback display name with a "User_" prefix and six
// random Base62 characters, used when signup omits a name.
func DisplayName() (string, error) {
	s, err := base62String(6)
	if err != nil {
		return "", err
	}

	return "User_" + s, nil
}
