package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by identity tokens.
// It embeds the standard claims plus the fields needed to resolve the
// token holder against the record store.
type Payload struct {
	// StandardClaims embeds Exp (Expiration), Iat (Issued At), and Iss (Issuer),
	// which drive token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the user's unique identifier (a UUID string).
	ID string `json:"id"`

	// Role is the account role, currently always "user". Kept in the claims so
	// privileged roles can be introduced without reissuing the token format.
	Role string `json:"role"`
}
