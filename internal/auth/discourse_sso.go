package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	authmw "github.com/bristolhackspace/induction/internal/auth/middleware"
)

// Sign returns the hex HMAC-SHA256 of payload, as DiscourseConnect expects.
func Sign(secret []byte, payload string) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(payload))
	return hex.EncodeToString(m.Sum(nil))
}

// Verify checks sig against payload in constant time.
func Verify(secret []byte, payload, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(payload))
	return hmac.Equal(m.Sum(nil), want)
}

func EncodePayload(v url.Values) string {
	return base64.StdEncoding.EncodeToString([]byte(v.Encode()))
}

func DecodePayload(payload string) (url.Values, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("decode sso payload: %w", err)
	}
	return url.ParseQuery(string(raw))
}

// SSO runs the DiscourseConnect handshake against the forum and turns a
// verified reply into a session.
type SSO struct {
	forumURL    string
	callbackURL string
	secret      []byte
	sessions    *authmw.AuthService
	log         *slog.Logger
	newNonce    func() string
}

type SSOConfig struct {
	ForumURL    string // forum base URL
	CallbackURL string // absolute URL of the callback route
	Secret      string
}

func NewSSO(cfg SSOConfig, sessions *authmw.AuthService, log *slog.Logger) (*SSO, error) {
	if cfg.ForumURL == "" || cfg.CallbackURL == "" {
		return nil, errors.New("sso: forum url and callback url are required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("sso: secret is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SSO{
		forumURL:    strings.TrimRight(cfg.ForumURL, "/"),
		callbackURL: cfg.CallbackURL,
		secret:      []byte(cfg.Secret),
		sessions:    sessions,
		log:         log,
		newNonce:    uuid.NewString,
	}, nil
}

// Login starts the handshake: it remembers the nonce and the requested page
// in a signed cookie and redirects to the forum's SSO provider endpoint.
func (s *SSO) Login(w http.ResponseWriter, r *http.Request) {
	nonce := s.newNonce()
	if err := s.sessions.SetState(w, nonce, safeReturn(r.URL.RequestURI())); err != nil {
		s.log.Error("sso state", "err", err)
		http.Error(w, "login unavailable", http.StatusInternalServerError)
		return
	}
	payload := EncodePayload(url.Values{
		"nonce":          {nonce},
		"return_sso_url": {s.callbackURL},
	})
	q := url.Values{}
	q.Set("sso", payload)
	q.Set("sig", Sign(s.secret, payload))
	http.Redirect(w, r, s.forumURL+"/session/sso_provider?"+q.Encode(), http.StatusFound)
}

// CallbackHandler verifies the forum's reply and establishes the session.
// GET /sso/callback?sso=...&sig=...
func (s *SSO) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := r.URL.Query().Get("sso")
		sig := r.URL.Query().Get("sig")
		if payload == "" || sig == "" {
			http.Error(w, "missing sso or sig", http.StatusBadRequest)
			return
		}
		if !Verify(s.secret, payload, sig) {
			s.log.Warn("sso signature mismatch", "remote", r.RemoteAddr)
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
		state, err := s.sessions.TakeState(w, r)
		if err != nil {
			s.log.Warn("sso state rejected", "err", err)
			http.Error(w, "login expired, please try again", http.StatusForbidden)
			return
		}
		vals, err := DecodePayload(payload)
		if err != nil {
			http.Error(w, "bad sso payload", http.StatusBadRequest)
			return
		}
		if subtle.ConstantTimeCompare([]byte(vals.Get("nonce")), []byte(state.Nonce)) != 1 {
			s.log.Warn("sso nonce mismatch")
			http.Error(w, "invalid nonce", http.StatusForbidden)
			return
		}

		username := vals.Get("username")
		memberID, err := strconv.ParseInt(vals.Get("external_id"), 10, 64)
		if username == "" || err != nil {
			http.Error(w, "sso payload missing username or external_id", http.StatusBadRequest)
			return
		}
		id := authmw.Identity{Username: username, MemberID: memberID, Name: vals.Get("name")}
		if err := s.sessions.SetSession(w, id); err != nil {
			s.log.Error("issue session", "err", err)
			http.Error(w, "issue session", http.StatusInternalServerError)
			return
		}
		s.log.Info("sso login", "username", username, "member_id", memberID)
		http.Redirect(w, r, safeReturn(state.ReturnTo), http.StatusFound)
	}
}

// LogoutHandler drops the local session. The forum session is untouched.
func (s *SSO) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sessions.ClearSession(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// safeReturn only allows local absolute paths.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, `/\`) {
		return "/"
	}
	return p
}
