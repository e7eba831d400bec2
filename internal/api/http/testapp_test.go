package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bristolhackspace/induction/definitions"
	"github.com/bristolhackspace/induction/internal/auth"
	authmw "github.com/bristolhackspace/induction/internal/auth/middleware"
	"github.com/bristolhackspace/induction/internal/forum"
	"github.com/bristolhackspace/induction/internal/forum/forumtest"
	"github.com/bristolhackspace/induction/internal/induction"
	"github.com/bristolhackspace/induction/internal/questionnaire"
	"github.com/bristolhackspace/induction/internal/storage"
)

const (
	ssoSecret = "test-sso-secret"
	tools     = `{"title":"Tool induction","questions":[{"text":"Q1","answers":[{"text":"A","correct":true},{"text":"B"}],"answer_hint":"Pick A."}]}`
)

// identityShuffler keeps definition order so pages are predictable.
type identityShuffler struct{}

func (identityShuffler) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

type testApp struct {
	handler  http.Handler
	forum    *forumtest.Server
	sessions *authmw.AuthService
}

type appOptions struct {
	files    fstest.MapFS
	precheck bool
	log      *slog.Logger
}

func newTestApp(t testing.TB, opts appOptions) *testApp {
	t.Helper()
	srv := forumtest.NewServer()
	t.Cleanup(srv.Close)

	files := opts.files
	if files == nil {
		files = fstest.MapFS{"tools.json": {Data: []byte(tools)}}
	}
	loader, err := questionnaire.NewLoader(storage.NewFSStore(files), definitions.Schema)
	require.NoError(t, err)
	fc, err := forum.New(forum.Config{BaseURL: srv.URL, APIKey: forumtest.APIKey, APIUsername: forumtest.APIUsername, Timeout: 2 * time.Second})
	require.NoError(t, err)

	log := opts.log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	key, err := authmw.DeriveKey([]byte(ssoSecret), "session")
	require.NoError(t, err)
	sessions := authmw.NewAuthService(key, time.Hour, false)
	sso, err := auth.NewSSO(auth.SSOConfig{
		ForumURL:    srv.URL,
		CallbackURL: "http://induction.test/sso/callback",
		Secret:      ssoSecret,
	}, sessions, log)
	require.NoError(t, err)

	h, err := NewRouter(Deps{
		Service:            induction.NewService(loader, fc, log),
		Sessions:           sessions,
		SSO:                sso,
		Log:                log,
		PrecheckMembership: opts.precheck,
		Shuffler:           identityShuffler{},
	})
	require.NoError(t, err)
	return &testApp{handler: h, forum: srv, sessions: sessions}
}

func (a *testApp) sessionCookie(t testing.TB, username string, memberID int64) *http.Cookie {
	t.Helper()
	tok, err := a.sessions.IssueJWT(authmw.Identity{Username: username, MemberID: memberID})
	require.NoError(t, err)
	return &http.Cookie{Name: authmw.SessionCookie, Value: tok}
}

func (a *testApp) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) post(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	return a.postRaw(path, form.Encode(), cookie)
}

// postRaw sends body as-is, for submissions a browser would not encode.
func (a *testApp) postRaw(path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}
