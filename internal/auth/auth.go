// Package auth provides JWT-based session tokens and the HTTP
// middleware that authenticates requests carrying them. Tokens travel
// in the Authorization header or in a cookie; both are set on login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/agenda/internal/db/storage"
	"github.com/patric-chuzhbe/agenda/internal/logger"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// Auth issues and verifies session tokens and authenticates HTTP
// requests against the user store.
type Auth struct {
	db userKeeper

	// authCookieName is the name of the cookie used to store the JWT.
	authCookieName string

	// signingSecretKey is the key used to sign JWTs.
	signingSecretKey []byte
}

// Claims embeds the standard JWT claims and adds the user identifier.
// IssuedAt is always set, so equal tokens for the same user differ
// between sessions.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// ErrInvalidToken is returned when a token is missing, unparsable or
// fails signature verification.
var ErrInvalidToken = errors.New("invalid session token")

// New creates an Auth handler with the given user data access layer,
// cookie name, and JWT signing secret.
func New(
	db userKeeper,
	authCookieName string,
	signingSecretKey []byte,
) *Auth {
	return &Auth{
		db:               db,
		authCookieName:   authCookieName,
		signingSecretKey: signingSecretKey,
	}
}

// BuildJWTString signs a session token carrying the user id and the
// issue time.
func (a *Auth) BuildJWTString(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseUserID verifies the token and extracts the user id.
func (a *Auth) ParseUserID(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}

// SetSessionToken attaches the token to the response as both an
// Authorization header and a cookie.
func (a *Auth) SetSessionToken(response http.ResponseWriter, token string) {
	response.Header().Set("Authorization", token)
	http.SetCookie(
		response,
		&http.Cookie{
			Name:  a.authCookieName,
			Value: token,
			Path:  "/",
		},
	)
}

// ClearSessionToken expires the auth cookie.
func (a *Auth) ClearSessionToken(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:   a.authCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		},
	)
}

func (a *Auth) tokenFromAuthorizationHeaderOrCookie(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString != "" {
		return tokenString
	}
	cookie, err := request.Cookie(a.authCookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

// AuthenticateUser is an HTTP middleware that authenticates incoming
// requests using JWTs found in the Authorization header or cookies.
// It verifies the user still exists and stores the user ID in the
// request context; requests without a valid session get 401.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.ParseUserID(a.tokenFromAuthorizationHeaderOrCookie(request))
		if err != nil {
			response.WriteHeader(http.StatusUnauthorized)
			return
		}

		usr, err := a.db.GetUserByID(request.Context(), userID)
		if errors.Is(err, storage.ErrUserNotFound) {
			response.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}
