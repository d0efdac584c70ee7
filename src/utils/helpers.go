package utils

import (
	"fmt"
	"hbs/src/config"
	"hbs/src/models"
	"hbs/src/types"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gosimple/slug"
)

func IsProd() bool {
	return os.Getenv("API_ENV") == "production"
}

// Getenv reads an environment variable with a fallback.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ParseDate parses a calendar date from a request body and pins it to UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(config.DATE_PARSE_FORMAT, value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// PropertySlug builds a unique-enough slug from the title and location.
func PropertySlug(title, location string) string {
	return slug.Make(fmt.Sprintf("%s %s", title, location))
}

// NewToken signs a session token for the account.
func NewToken(account *models.Account, ttl time.Duration) (string, error) {
	key := []byte(os.Getenv("JWT_SECRET"))
	claims := &types.Claims{
		Username: account.Email,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(account.ID)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}
