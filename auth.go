// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package namevm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/luxfi/ids"
)

// DefaultCallerHeader carries the caller address set by a trusted front
// proxy.
const DefaultCallerHeader = "X-Namevm-Caller"

var (
	_ Authenticator = (*HeaderAuthenticator)(nil)
	_ Authenticator = (*JWTAuthenticator)(nil)

	errUnauthenticated         = errors.New("unauthenticated")
	errUnexpectedSigningMethod = errors.New("unexpected signing method")
)

// Authenticator resolves the principal making a request. Request bodies
// never name the caller.
type Authenticator interface {
	Authenticate(r *http.Request) (ids.ShortID, error)
}

// HeaderAuthenticator reads the caller from a request header. It must only
// be exposed behind a proxy that sets the header from a verified identity.
type HeaderAuthenticator struct {
	Header string
}

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (ids.ShortID, error) {
	value := r.Header.Get(a.Header)
	if value == "" {
		return ids.ShortEmpty, fmt.Errorf("%w: missing %s header", errUnauthenticated, a.Header)
	}
	caller, err := ids.ShortFromString(value)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: %w", errUnauthenticated, err)
	}
	return caller, nil
}

// JWTAuthenticator reads the caller from the subject of an HMAC-signed
// bearer token.
type JWTAuthenticator struct {
	Secret []byte
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (ids.ShortID, error) {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ids.ShortEmpty, fmt.Errorf("%w: missing bearer token", errUnauthenticated)
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedSigningMethod, token.Header["alg"])
		}
		return a.Secret, nil
	})
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: %w", errUnauthenticated, err)
	}

	caller, err := ids.ShortFromString(claims.Subject)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: invalid subject: %w", errUnauthenticated, err)
	}
	return caller, nil
}
