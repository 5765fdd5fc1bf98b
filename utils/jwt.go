package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shopfloor/config"
	"shopfloor/models"
)

// Claims is the verified identity this core trusts. TenantID is optional:
// platform admins carry none.
type Claims struct {
	UserID          uint  `json:"user_id"`
	TenantID        *uint `json:"tenant_id,omitempty"`
	IsPlatformAdmin bool  `json:"is_platform_admin,omitempty"`
	TokenVersion    int   `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWTToken issues access and refresh tokens for a user. tenantID is
// nil for platform admins.
func GenerateJWTToken(user *models.User, tenantID *uint) (string, string, error) {
	accessClaims := &Claims{
		UserID:          user.ID,
		TenantID:        tenantID,
		IsPlatformAdmin: user.IsPlatformAdmin,
		TokenVersion:    user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		return "", "", err
	}

	refreshClaims := &Claims{
		UserID:          user.ID,
		TenantID:        tenantID,
		IsPlatformAdmin: user.IsPlatformAdmin,
		TokenVersion:    user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}

func ParseJWTToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
