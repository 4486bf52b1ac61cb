package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig selects how staff tokens are verified. Cognito-issued RS256
// tokens are checked against the user pool's JWKS; anything else is treated as
// an HS256 token signed with StaffSecret.
type AuthConfig struct {
	Region      string
	UserPoolID  string
	ClientID    string
	StaffSecret string

	// JWKSURL overrides the user pool key endpoint.
	JWKSURL    string
	HTTPClient *http.Client
}

func (c AuthConfig) cognitoEnabled() bool {
	return (c.Region != "" && c.UserPoolID != "") || c.JWKSURL != ""
}

// Enabled reports whether any verification method is configured.
func (c AuthConfig) Enabled() bool {
	return c.cognitoEnabled() || c.StaffSecret != ""
}

// StaffClaims covers both Cognito ID/access tokens and locally signed tokens.
type StaffClaims struct {
	jwt.RegisteredClaims
	Email           string   `json:"email,omitempty"`
	Groups          []string `json:"cognito:groups,omitempty"`
	TokenUse        string   `json:"token_use,omitempty"`
	ClientID        string   `json:"client_id,omitempty"`
	CognitoUsername string   `json:"cognito:username,omitempty"`
}

// Username prefers the Cognito username over the subject.
func (c *StaffClaims) Username() string {
	if c.CognitoUsername != "" {
		return c.CognitoUsername
	}
	return c.Subject
}

type staffClaimsKey struct{}

// StaffFromContext returns the verified claims for the current admin request.
func StaffFromContext(ctx context.Context) (*StaffClaims, bool) {
	claims, ok := ctx.Value(staffClaimsKey{}).(*StaffClaims)
	return claims, ok
}

var (
	errMissingBearer = errors.New("missing authorization header")
	errInvalidToken  = errors.New("invalid token")
)

// StaffAuth protects the admin API.
func StaffAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	var keys *jwksCache
	issuer := ""
	if cfg.cognitoEnabled() {
		if cfg.Region != "" && cfg.UserPoolID != "" {
			issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.Region, cfg.UserPoolID)
		}
		url := cfg.JWKSURL
		if url == "" {
			url = issuer + "/.well-known/jwks.json"
		}
		client := cfg.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 10 * time.Second}
		}
		keys = &jwksCache{url: url, client: client, ttl: time.Hour}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() {
				writeAuthError(w, "admin auth disabled")
				return
			}
			raw, err := bearerToken(r)
			if err != nil {
				writeAuthError(w, err.Error())
				return
			}

			var claims *StaffClaims
			if keys != nil && looksLikeCognito(raw) {
				claims, err = verifyCognito(r.Context(), raw, keys, issuer, cfg.ClientID)
			} else {
				claims, err = verifyHMAC(raw, cfg.StaffSecret)
			}
			if err != nil {
				writeAuthError(w, errInvalidToken.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), staffClaimsKey{}, claims)))
		})
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on a
// websocket handshake, so upgrades may pass the token as ?access_token= instead.
func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", errMissingBearer
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}

// looksLikeCognito peeks at the JOSE header: Cognito signs with RS256 and sets a kid.
func looksLikeCognito(raw string) bool {
	head, _, ok := strings.Cut(raw, ".")
	if !ok {
		return false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(head)
	if err != nil {
		return false
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if json.Unmarshal(decoded, &header) != nil {
		return false
	}
	return header.Alg == "RS256" && header.Kid != ""
}

func verifyHMAC(raw, secret string) (*StaffClaims, error) {
	if secret == "" {
		return nil, errInvalidToken
	}
	claims := &StaffClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

func verifyCognito(ctx context.Context, raw string, keys *jwksCache, issuer, clientID string) (*StaffClaims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired(), jwt.WithValidMethods([]string{"RS256"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	claims := &StaffClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return keys.key(ctx, kid)
	}, opts...)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if clientID == "" {
		return claims, nil
	}
	switch claims.TokenUse {
	case "access":
		if claims.ClientID != clientID {
			return nil, errInvalidToken
		}
	default:
		aud, _ := claims.GetAudience()
		found := false
		for _, a := range aud {
			if a == clientID {
				found = true
				break
			}
		}
		if !found {
			return nil, errInvalidToken
		}
	}
	return claims, nil
}

// jwksCache holds the user pool signing keys and refetches them when a kid is
// unknown or the cache has expired.
type jwksCache struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func (c *jwksCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	k, ok := c.keys[kid]
	fresh := time.Now().Before(c.expires)
	c.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.keys = keys
	c.expires = time.Now().Add(c.ttl)
	c.mu.Unlock()

	if k, ok := keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("jwks: key %q not found", kid)
}

func (c *jwksCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks: unexpected status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("jwks: decode: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks: no usable RSA keys")
	}
	return keys, nil
}

func parseRSAPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	exp := 0
	for _, b := range eb {
		exp = exp<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exp}, nil
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}
