package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"booklog/internal/auth"
	"booklog/internal/config"
	"booklog/internal/covers"
	"booklog/internal/handler"
	"booklog/internal/model"
	"booklog/internal/service"
	"booklog/internal/view"
)

// In-memory repositories mimicking the gorm-backed ones closely enough
// for end-to-end route tests: same sentinel errors, same owner
// predicates, same ordering.

type memUserRepo struct {
	seq     uint
	byEmail map[string]*model.User
	findErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: make(map[string]*model.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.seq++
	user.ID = r.seq
	r.byEmail[user.Email] = user
	return nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type memBookRepo struct {
	seq     uint
	books   map[uint]*model.Book
	listErr error
}

func newMemBookRepo() *memBookRepo {
	return &memBookRepo{books: make(map[uint]*model.Book)}
}

func (r *memBookRepo) Create(ctx context.Context, book *model.Book) error {
	r.seq++
	book.ID = r.seq
	book.CreatedAt = time.Now()
	r.books[book.ID] = book
	return nil
}

func (r *memBookRepo) ListByOwner(ctx context.Context, ownerID uint, sortKey string) ([]model.Book, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []model.Book
	for _, b := range r.books {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if sortKey == "rating" {
			if c := compareDescNullsLast(intVal(out[i].Rating), intVal(out[j].Rating), out[i].Rating == nil, out[j].Rating == nil); c != 0 {
				return c > 0
			}
			return laterDateFirst(out[i].ReadDate, out[j].ReadDate)
		}
		if out[i].ReadDate == nil || out[j].ReadDate == nil || !out[i].ReadDate.Equal(*out[j].ReadDate) {
			return laterDateFirst(out[i].ReadDate, out[j].ReadDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func compareDescNullsLast(a, b int, aNull, bNull bool) int {
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

func laterDateFirst(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

func (r *memBookRepo) FindOwned(ctx context.Context, ownerID, bookID uint) (*model.Book, error) {
	b, ok := r.books[bookID]
	if !ok || b.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (r *memBookRepo) UpdateOwned(ctx context.Context, ownerID, bookID uint, fields map[string]interface{}) (int64, error) {
	b, ok := r.books[bookID]
	if !ok || b.OwnerID != ownerID {
		return 0, nil
	}
	if v, ok := fields["title"].(string); ok {
		b.Title = v
	}
	if v, ok := fields["author"].(string); ok {
		b.Author = v
	}
	if v, ok := fields["cover_url"].(string); ok {
		b.CoverURL = v
	}
	b.Rating, _ = fields["rating"].(*int)
	b.Review, _ = fields["review"].(*string)
	b.ReadDate, _ = fields["read_date"].(*time.Time)
	return 1, nil
}

func (r *memBookRepo) DeleteOwned(ctx context.Context, ownerID, bookID uint) (int64, error) {
	b, ok := r.books[bookID]
	if !ok || b.OwnerID != ownerID {
		return 0, nil
	}
	delete(r.books, bookID)
	return 1, nil
}

type memSessionStore struct {
	records map[string]auth.Identity
}

func (s *memSessionStore) Put(ctx context.Context, tokenID string, identity auth.Identity, ttl time.Duration) error {
	s.records[tokenID] = identity
	return nil
}

func (s *memSessionStore) Get(ctx context.Context, tokenID string) (*auth.Identity, error) {
	identity, ok := s.records[tokenID]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return &identity, nil
}

func (s *memSessionStore) Delete(ctx context.Context, tokenID string) error {
	delete(s.records, tokenID)
	return nil
}

type fakeProvider struct {
	email string
	err   error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/consent?state=" + state
}

func (p *fakeProvider) ExchangeEmail(ctx context.Context, code string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.email, nil
}

type testApp struct {
	e        *echo.Echo
	users    *memUserRepo
	books    *memBookRepo
	provider *fakeProvider
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	e := echo.New()
	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	e.Renderer = renderer

	cfg := &config.Config{SessionSecret: "test-secret", SessionTTL: time.Hour}

	users := newMemUserRepo()
	books := newMemBookRepo()
	provider := &fakeProvider{email: "federated@example.com"}

	tokens := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	sessions := auth.NewSessionManager(tokens, &memSessionStore{records: make(map[string]auth.Identity)})

	authService := service.NewAuthService(users)
	coverClient := covers.NewClient("http://127.0.0.1:0", time.Second, nil)
	bookService := service.NewBookService(books, coverClient)

	Register(e, cfg, sessions,
		handler.NewPageHandler(),
		handler.NewAuthHandler(authService, sessions, provider, cfg.SessionTTL),
		handler.NewBookHandler(bookService),
	)

	return &testApp{e: e, users: users, books: books, provider: provider}
}

func (app *testApp) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, app *testApp, email, password string) *http.Cookie {
	t.Helper()
	rec := app.do(http.MethodPost, "/register", url.Values{
		"username": {email},
		"password": {password},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/main", rec.Header().Get("Location"))
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == handler.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/main", "/books", "/add", "/edit/1"} {
		rec := app.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, target)
		assert.Equal(t, "/login", rec.Header().Get("Location"), target)
	}
	for _, target := range []string{"/add", "/delete", "/edit", "/update"} {
		rec := app.do(http.MethodPost, target, url.Values{"id": {"1"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code, target)
		assert.Equal(t, "/login", rec.Header().Get("Location"), target)
	}
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/", "/login", "/register"} {
		rec := app.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}

func TestRegisterLoginScenario(t *testing.T) {
	app := newTestApp(t)

	// register alice@example.com / pw123 and land on /main
	cookie := register(t, app, "alice@example.com", "pw123")

	rec := app.do(http.MethodGet, "/main", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	// create Dune
	rec = app.do(http.MethodPost, "/add", url.Values{
		"action": {"save"},
		"title":  {"Dune"},
		"author": {"Frank Herbert"},
	}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/books", rec.Header().Get("Location"))

	rec = app.do(http.MethodGet, "/books", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dune")

	// update the rating to 5
	var bookID uint
	for id := range app.books.books {
		bookID = id
	}
	rec = app.do(http.MethodPost, "/update", url.Values{
		"id":     {strconv.Itoa(int(bookID))},
		"title":  {"Dune"},
		"author": {"Frank Herbert"},
		"rating": {"5"},
	}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = app.do(http.MethodGet, "/books?sort=rating", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rated 5/5")

	// delete it and end with an empty shelf
	rec = app.do(http.MethodPost, "/delete", url.Values{"id": {strconv.Itoa(int(bookID))}}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = app.do(http.MethodGet, "/books", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No books yet")
}

func TestLoginAfterRegister(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "alice@example.com", "pw123")

	rec := app.do(http.MethodPost, "/login", url.Values{
		"username": {"alice@example.com"},
		"password": {"pw123"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/main", rec.Header().Get("Location"))

	// wrong password goes back to the login page, same as unknown email
	rec = app.do(http.MethodPost, "/login", url.Values{
		"username": {"alice@example.com"},
		"password": {"wrong"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = app.do(http.MethodPost, "/login", url.Values{
		"username": {"nobody@example.com"},
		"password": {"wrong"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestDuplicateRegistration(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "alice@example.com", "pw123")

	rec := app.do(http.MethodPost, "/register", url.Values{
		"username": {"alice@example.com"},
		"password": {"other"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already exists. Try logging in.")
	assert.Len(t, app.users.byEmail, 1)
}

func TestCrossUserIsolation(t *testing.T) {
	app := newTestApp(t)

	aliceCookie := register(t, app, "alice@example.com", "pw123")
	rec := app.do(http.MethodPost, "/add", url.Values{
		"action": {"save"},
		"title":  {"Dune"},
	}, aliceCookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var bookID uint
	for id := range app.books.books {
		bookID = id
	}
	id := strconv.Itoa(int(bookID))

	bobCookie := register(t, app, "bob@example.com", "pw456")

	// bob cannot see alice's book
	rec = app.do(http.MethodGet, "/books", nil, bobCookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Dune")

	// nor edit, update or delete it; every miss looks the same
	rec = app.do(http.MethodGet, "/edit/"+id, nil, bobCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/books", rec.Header().Get("Location"))

	rec = app.do(http.MethodPost, "/update", url.Values{"id": {id}, "title": {"stolen"}}, bobCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/books", rec.Header().Get("Location"))

	rec = app.do(http.MethodPost, "/delete", url.Values{"id": {id}}, bobCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	// alice's book is untouched
	book := app.books.books[bookID]
	require.NotNil(t, book)
	assert.Equal(t, "Dune", book.Title)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	app := newTestApp(t)
	cookie := register(t, app, "alice@example.com", "pw123")

	rec := app.do(http.MethodGet, "/logout", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// the old cookie no longer opens any protected door
	for _, target := range []string{"/main", "/books", "/add"} {
		rec = app.do(http.MethodGet, target, nil, cookie)
		assert.Equal(t, http.StatusSeeOther, rec.Code, target)
		assert.Equal(t, "/login", rec.Header().Get("Location"), target)
	}

	// logging out twice is harmless
	rec = app.do(http.MethodGet, "/logout", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestGoogleFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/auth/google", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "provider.example/consent")

	u, err := url.Parse(location)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)

	// first callback creates the user with the sentinel password
	rec = app.do(http.MethodGet, "/auth/google/callback?state="+state+"&code=abc", nil, stateCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/main", rec.Header().Get("Location"))

	user, err := app.users.FindByEmail(context.Background(), "federated@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.FederatedSentinel, user.PasswordHash)
	firstID := user.ID

	// a second login resolves to the same user
	rec = app.do(http.MethodGet, "/auth/google/callback?state="+state+"&code=abc", nil, stateCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	user, err = app.users.FindByEmail(context.Background(), "federated@example.com")
	require.NoError(t, err)
	assert.Equal(t, firstID, user.ID)
	assert.Len(t, app.users.byEmail, 1)

	// the sentinel never works as a local password
	rec = app.do(http.MethodPost, "/login", url.Values{
		"username": {"federated@example.com"},
		"password": {model.FederatedSentinel},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGoogleCallbackRejectsBadState(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/auth/google/callback?state=forged&code=abc", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Empty(t, app.users.byEmail)
}

func TestGoogleCallbackProviderFailure(t *testing.T) {
	app := newTestApp(t)
	app.provider.err = errors.New("provider down")

	rec := app.do(http.MethodGet, "/auth/google", nil)
	u, _ := url.Parse(rec.Header().Get("Location"))
	state := u.Query().Get("state")
	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)

	rec = app.do(http.MethodGet, "/auth/google/callback?state="+state+"&code=abc", nil, stateCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestBooksSortedByRating(t *testing.T) {
	app := newTestApp(t)
	cookie := register(t, app, "alice@example.com", "pw123")

	add := func(title, rating, readDate string) {
		rec := app.do(http.MethodPost, "/add", url.Values{
			"action":    {"save"},
			"title":     {title},
			"rating":    {rating},
			"read_date": {readDate},
		}, cookie)
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}
	add("Middling", "3", "2026-02-01")
	add("Best", "5", "2026-01-01")
	add("Unrated", "", "2026-03-01")

	rec := app.do(http.MethodGet, "/books?sort=rating", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	best := strings.Index(body, "Best")
	middling := strings.Index(body, "Middling")
	unrated := strings.Index(body, "Unrated")
	assert.True(t, best < middling, "highest rating first")
	assert.True(t, middling < unrated, "null ratings last")

	rec = app.do(http.MethodGet, "/books?sort=recent", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.True(t, strings.Index(body, "Unrated") < strings.Index(body, "Middling"))
	assert.True(t, strings.Index(body, "Middling") < strings.Index(body, "Best"))
}

// Storage failures are not swallowed into redirects: whatever a handler
// passes through comes out of the central error handler as a 500 with a
// safe body, never the underlying error text.
func TestStorageFailureSurfacesAsInternalError(t *testing.T) {
	app := newTestApp(t)
	cookie := register(t, app, "alice@example.com", "pw123")

	app.users.findErr = errors.New("connection refused")
	rec := app.do(http.MethodPost, "/login", url.Values{
		"username": {"alice@example.com"},
		"password": {"pw123"},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "connection refused")
	app.users.findErr = nil

	app.books.listErr = errors.New("connection refused")
	rec = app.do(http.MethodGet, "/books", nil, cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAddFetchCover(t *testing.T) {
	app := newTestApp(t)
	cookie := register(t, app, "alice@example.com", "pw123")

	// fetch without a title re-renders with a prompt
	rec := app.do(http.MethodPost, "/add", url.Values{
		"action": {"fetch"},
		"title":  {""},
	}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a title before fetching the cover.")

	// collaborator unreachable: the form comes back with a warning, the
	// flow is not aborted, and nothing was saved
	rec = app.do(http.MethodPost, "/add", url.Values{
		"action": {"fetch"},
		"title":  {"Dune"},
	}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error contacting Open Library. Try again.")
	assert.Empty(t, app.books.books)
}
