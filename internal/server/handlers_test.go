package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/gymunity/feed/internal/runtime"
	"github.com/gymunity/feed/internal/store"
)

var testSecret = []byte("test-secret")

func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &store.Store{DB: db}, mock
}

func authedRequest(t *testing.T, method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	token, err := runtime.SignJWT("u1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func TestLoginSuccess(t *testing.T) {
	st, mock := newMockStore(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.DefaultCost)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, password_hash FROM users WHERE email=$1`)).
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow("u1", string(hash)))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.c","password":"hunter2hunter2"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := &AuthHandler{Store: st, Secret: testSecret}
	if err := h.login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("bad token response: %s", rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	found := false
	for _, ck := range cookies {
		if ck.Name == "auth" && ck.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("auth cookie not set")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	st, mock := newMockStore(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.DefaultCost)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, password_hash FROM users WHERE email=$1`)).
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow("u1", string(hash)))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.c","password":"wrong-password"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := &AuthHandler{Store: st, Secret: testSecret}
	err := h.login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	err := authMiddleware(testSecret)(next)(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuthMiddlewareAcceptsBearer(t *testing.T) {
	e := echo.New()
	req, rec := authedRequest(t, http.MethodGet, "/api/feed", "")
	c := e.NewContext(req, rec)

	var gotUser string
	next := func(c echo.Context) error {
		gotUser, _ = c.Get("user_id").(string)
		return c.NoContent(http.StatusOK)
	}
	if err := authMiddleware(testSecret)(next)(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if gotUser != "u1" {
		t.Fatalf("user_id = %q", gotUser)
	}
}

func TestPostEventsValidation(t *testing.T) {
	st, _ := newMockStore(t)
	h := &EventsHandler{Store: st}
	e := echo.New()

	cases := []struct {
		name string
		body string
	}{
		{"empty batch", `{"events":[]}`},
		{"missing article", `{"events":[{"event_type":"click"}]}`},
		{"unknown type", `{"events":[{"article_id":"a1","event_type":"teleport"}]}`},
	}
	for _, tc := range cases {
		req, rec := authedRequest(t, http.MethodPost, "/api/events", tc.body)
		c := e.NewContext(req, rec)
		c.Set("user_id", "u1")

		err := h.postEvents(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", tc.name, err)
		}
	}
}

func TestPostEventsDedupAndBump(t *testing.T) {
	st, mock := newMockStore(t)
	h := &EventsHandler{Store: st}
	e := echo.New()

	// First event is a duplicate; second is fresh and bumps popularity.
	mock.ExpectQuery("SELECT 1 FROM user_events").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM user_events").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec("INSERT INTO user_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE news_articles SET popularity_score").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"events":[{"article_id":"a1","event_type":"click"},{"article_id":"a2","event_type":"save"}]}`
	req, rec := authedRequest(t, http.MethodPost, "/api/events", body)
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	if err := h.postEvents(c); err != nil {
		t.Fatalf("postEvents: %v", err)
	}
	var resp EventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Accepted != 1 || resp.Deduped != 1 {
		t.Fatalf("accepted=%d deduped=%d, want 1/1", resp.Accepted, resp.Deduped)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostEventsBatchLimit(t *testing.T) {
	st, _ := newMockStore(t)
	h := &EventsHandler{Store: st}
	e := echo.New()

	var sb strings.Builder
	sb.WriteString(`{"events":[`)
	for i := 0; i < maxEventBatch+1; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"article_id":"a1","event_type":"click"}`)
	}
	sb.WriteString(`]}`)

	req, rec := authedRequest(t, http.MethodPost, "/api/events", sb.String())
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	err := h.postEvents(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized batch, got %v", err)
	}
}

func TestIntQueryParam(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?page=3&bad=x", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if got := intQueryParam(c, "page", 1); got != 3 {
		t.Errorf("page = %d", got)
	}
	if got := intQueryParam(c, "bad", 7); got != 7 {
		t.Errorf("bad = %d, want default", got)
	}
	if got := intQueryParam(c, "missing", 5); got != 5 {
		t.Errorf("missing = %d, want default", got)
	}
}

func TestArticleOutCarriesEnrichment(t *testing.T) {
	a := store.Article{
		ID:       "a1",
		SourceID: "s1",
		Title:    "Progressive overload basics",
		Topics:   []string{"strength"},
		Keywords: []string{"progressive overload", "hypertrophy"},
	}

	out := articleOut(a, true)
	if len(out.Keywords) != 2 || out.Keywords[0] != "progressive overload" {
		t.Errorf("keywords = %v", out.Keywords)
	}
	if !out.Saved {
		t.Error("saved flag lost")
	}

	// Nil slices serialize as [], not null.
	bare := articleOut(store.Article{ID: "a2"}, false)
	if bare.Topics == nil || bare.Keywords == nil {
		t.Errorf("topics=%v keywords=%v, want empty slices", bare.Topics, bare.Keywords)
	}
}

func TestPutPreferences(t *testing.T) {
	st, mock := newMockStore(t)
	h := &PrefsHandler{Store: st}
	e := echo.New()

	mock.ExpectExec("INSERT INTO user_news_preferences").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"topics":["strength"],"blocked_keywords":["keto"]}`
	req, rec := authedRequest(t, http.MethodPut, "/api/preferences", body)
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	if err := h.putPreferences(c); err != nil {
		t.Fatalf("putPreferences: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
