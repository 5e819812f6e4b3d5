package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"mediachain/crypto"
)

// OperatorScope lets a token act for any account and mine blocks.
const OperatorScope = "operator"

type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	ClockSkew  time.Duration
}

// Identity is the authenticated caller of a mutating method.
type Identity struct {
	Subject  [20]byte
	Operator bool
}

type identityKey struct{}

func withIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// Authenticator validates HMAC signed bearer tokens. The subject claim is the
// bech32 account the token may act for.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.HMACSecret))}
}

// Authenticate returns the caller identity. With auth disabled every request
// is anonymous and the returned identity is nil.
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, *RPCError) {
	if a == nil || !a.cfg.Enabled {
		return nil, nil
	}
	tokenString := extractBearer(r.Header.Get("Authorization"))
	if tokenString == "" {
		return nil, &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	claims, err := a.parseToken(tokenString)
	if err != nil {
		return nil, &RPCError{Code: codeUnauthorized, Message: "invalid token", Data: err.Error()}
	}
	if a.cfg.Issuer != "" {
		if iss, _ := claims["iss"].(string); iss != a.cfg.Issuer {
			return nil, &RPCError{Code: codeUnauthorized, Message: "invalid token", Data: "issuer mismatch"}
		}
	}
	id := &Identity{Operator: hasScope(claims, OperatorScope)}
	if sub, _ := claims["sub"].(string); strings.TrimSpace(sub) != "" {
		subject, err := crypto.ParseAccount(strings.TrimSpace(sub))
		if err != nil {
			return nil, &RPCError{Code: codeUnauthorized, Message: "invalid token subject", Data: err.Error()}
		}
		id.Subject = subject
	} else if !id.Operator {
		return nil, &RPCError{Code: codeUnauthorized, Message: "token subject required"}
	}
	return id, nil
}

func (a *Authenticator) parseToken(tokenString string) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(a.cfg.ClockSkew))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims not map")
	}
	return claims, nil
}

func hasScope(claims jwt.MapClaims, scope string) bool {
	switch v := claims["scope"].(type) {
	case string:
		for _, field := range strings.Fields(v) {
			if field == scope {
				return true
			}
		}
	case []interface{}:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == scope {
				return true
			}
		}
	}
	return false
}

func extractBearer(header string) string {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// authorizeCaller checks that the authenticated identity may act as caller.
func authorizeCaller(ctx context.Context, caller [20]byte) *RPCError {
	id, ok := identityFrom(ctx)
	if !ok || id.Operator || id.Subject == caller {
		return nil
	}
	return &RPCError{Code: codeUnauthorized, Message: "token does not authorize caller", Data: crypto.FormatAccount(caller)}
}

// requireOperator guards node level controls such as chain_mine.
func requireOperator(ctx context.Context) *RPCError {
	id, ok := identityFrom(ctx)
	if !ok || id.Operator {
		return nil
	}
	return &RPCError{Code: codeUnauthorized, Message: "operator scope required"}
}
