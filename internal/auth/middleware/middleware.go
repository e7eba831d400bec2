package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	SessionCookie = "induction_session"
	StateCookie   = "induction_sso_state"

	issuer        = "induction"
	audSession    = "session"
	audState      = "sso-state"
	stateLifetime = 10 * time.Minute
)

// DeriveKey expands secret into a 32 byte key bound to info, so one
// configured secret can sign several token kinds without key reuse.
func DeriveKey(secret []byte, info string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("auth: derive key: %w", err)
	}
	return key, nil
}

// AuthService signs and checks the session and SSO state cookies.
type AuthService struct {
	hmac   []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewAuthService(key []byte, ttl time.Duration, secureCookies bool) *AuthService {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthService{hmac: key, ttl: ttl, secure: secureCookies, now: time.Now}
}

type Claims struct {
	Username string `json:"username"`
	MemberID int64  `json:"member_id"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// StateClaims carry the SSO nonce and where to go once the handshake is done.
type StateClaims struct {
	Nonce    string `json:"nonce"`
	ReturnTo string `json:"return_to"`
	jwt.RegisteredClaims
}

func (a *AuthService) registered(aud string, ttl time.Duration) jwt.RegisteredClaims {
	now := a.now()
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{aud},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (a *AuthService) IssueJWT(id Identity) (string, error) {
	claims := &Claims{
		Username:         id.Username,
		MemberID:         id.MemberID,
		Name:             id.Name,
		RegisteredClaims: a.registered(audSession, a.ttl),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	c := &Claims{}
	if err := a.parse(tokenStr, audSession, c); err != nil {
		return nil, err
	}
	if c.Username == "" {
		return nil, errors.New("auth: session without username")
	}
	return c, nil
}

func (a *AuthService) IssueState(nonce, returnTo string) (string, error) {
	claims := &StateClaims{
		Nonce:            nonce,
		ReturnTo:         returnTo,
		RegisteredClaims: a.registered(audState, stateLifetime),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.hmac)
}

func (a *AuthService) ParseState(tokenStr string) (*StateClaims, error) {
	c := &StateClaims{}
	if err := a.parse(tokenStr, audState, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *AuthService) parse(tokenStr, aud string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(aud),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("auth: invalid token")
	}
	return nil
}

func (a *AuthService) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.Expires = a.now().Add(ttl)
	} else {
		c.Expires = time.Unix(0, 0)
		c.MaxAge = -1
	}
	return c
}

// SetSession issues a session token for id and stores it in a cookie.
func (a *AuthService) SetSession(w http.ResponseWriter, id Identity) error {
	tok, err := a.IssueJWT(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, a.cookie(SessionCookie, tok, a.ttl))
	return nil
}

func (a *AuthService) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, a.cookie(SessionCookie, "", 0))
}

func (a *AuthService) SetState(w http.ResponseWriter, nonce, returnTo string) error {
	tok, err := a.IssueState(nonce, returnTo)
	if err != nil {
		return err
	}
	http.SetCookie(w, a.cookie(StateCookie, tok, stateLifetime))
	return nil
}

// TakeState reads and clears the SSO state cookie.
func (a *AuthService) TakeState(w http.ResponseWriter, r *http.Request) (*StateClaims, error) {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return nil, fmt.Errorf("auth: missing sso state: %w", err)
	}
	http.SetCookie(w, a.cookie(StateCookie, "", 0))
	return a.ParseState(c.Value)
}

// IdentityFromRequest reads the session cookie, if any.
func (a *AuthService) IdentityFromRequest(r *http.Request) (Identity, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return Identity{}, false
	}
	claims, err := a.Parse(c.Value)
	if err != nil {
		return Identity{}, false
	}
	return Identity{Username: claims.Username, MemberID: claims.MemberID, Name: claims.Name}, true
}

// Session puts the cookie identity, when valid, into the request context.
// It never rejects a request.
func Session(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := a.IdentityFromRequest(r); ok {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLogin hands requests without an identity to login instead of the
// wrapped handler. It expects Session to have run first.
func RequireLogin(login http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				login(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
