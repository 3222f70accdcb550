package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserKey is the gin context key holding the caller's principal id.
const UserKey = "user"

// Authenticate resolves the caller from a bearer token. Requests without a token
// continue anonymously, the handlers decide whether identity is required.
// A token that is present but invalid is rejected.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		subject, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
				"code":  "unauthenticated",
			})
			return
		}

		c.Set(UserKey, subject)
		c.Next()
	}
}

// Identity returns the authenticated principal, empty for anonymous callers.
func Identity(c *gin.Context) string {
	v, ok := c.Get(UserKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func ParseToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token without subject")
	}
	return sub, nil
}

func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
