package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petrocore/pkg/database"
)

type authResp struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func newTestServer(t *testing.T, allowRegister bool) (*gin.Engine, TokenService, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "auth.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	repo := NewRepo(db)
	tokens := TokenService{Secret: []byte("test-secret"), Issuer: "petrocore-test", Duration: time.Hour}

	r := gin.New()
	NewHandler(repo, tokens, allowRegister, nil).RegisterRoutes(r.Group("/auth"))
	r.POST("/write", AdminOnly(tokens, repo), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"by": MustGetClaims(c).Username})
	})
	return r, tokens, repo
}

func call(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, r *gin.Engine, username, email string) (*httptest.ResponseRecorder, authResp) {
	t.Helper()
	w := call(r, http.MethodPost, "/auth/register", "", gin.H{"username": username, "email": email, "password": "correct horse"})
	var resp authResp
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	r, _, _ := newTestServer(t, false)

	w, first := register(t, r, "curator", "Curator@Example.com")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, RoleAdmin, first.User.Role)
	assert.NotEmpty(t, first.Token)

	w, _ = register(t, r, "visitor", "visitor@example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(r, http.MethodPost, "/write", first.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "curator")
}

func TestRegister_OpenRegistrationGivesViewers(t *testing.T) {
	r, _, _ := newTestServer(t, true)

	w, _ := register(t, r, "curator", "curator@example.com")
	require.Equal(t, http.StatusCreated, w.Code)

	w, viewer := register(t, r, "visitor", "visitor@example.com")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, RoleViewer, viewer.User.Role)

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/write", viewer.Token, nil).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/auth/me", viewer.Token, nil).Code)

	w, _ = register(t, r, "visitor", "other@example.com")
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = register(t, r, "another", "VISITOR@example.com")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	r, _, _ := newTestServer(t, false)
	tests := []gin.H{
		{"username": "ab", "email": "a@b.c", "password": "correct horse"},
		{"username": "curator", "email": "nope", "password": "correct horse"},
		{"username": "curator", "email": "a@b.c", "password": "short"},
	}
	for _, body := range tests {
		assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/auth/register", "", body).Code)
	}
}

func TestLoginLogoutRevokes(t *testing.T) {
	r, _, _ := newTestServer(t, false)
	w, _ := register(t, r, "curator", "curator@example.com")
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(r, http.MethodPost, "/auth/login", "", gin.H{"email": "curator@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(r, http.MethodPost, "/auth/login", "", gin.H{"email": " CURATOR@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)
	var login authResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/write", login.Token, nil).Code)
	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/auth/logout", login.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/write", login.Token, nil).Code)
}

func TestChangePassword(t *testing.T) {
	r, _, _ := newTestServer(t, false)
	_, reg := register(t, r, "curator", "curator@example.com")

	w := call(r, http.MethodPost, "/auth/change-password", reg.Token, gin.H{"old_password": "nope nope", "new_password": "new password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(r, http.MethodPost, "/auth/change-password", reg.Token, gin.H{"old_password": "correct horse", "new_password": "new password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/write", reg.Token, nil).Code, "old token revoked")

	w = call(r, http.MethodPost, "/auth/login", "", gin.H{"email": "curator@example.com", "password": "new password"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_RejectsBadTokens(t *testing.T) {
	r, tokens, _ := newTestServer(t, false)

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/write", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/write", "garbage", nil).Code)

	other := TokenService{Secret: []byte("other"), Issuer: tokens.Issuer, Duration: time.Hour}
	forged, _, err := other.Sign(&User{ID: "x", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/write", forged, nil).Code)

	// valid signature but the user does not exist
	ghost, _, err := tokens.Sign(&User{ID: "ghost", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/write", ghost, nil).Code)
}

func TestTokenService(t *testing.T) {
	ts := TokenService{Secret: []byte("s"), Issuer: "petrocore", Duration: time.Hour}
	tok, exp, err := ts.Sign(&User{ID: "u1", Username: "curator", Role: RoleAdmin, TokenVersion: 3})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, RoleAdmin, claims.Role)

	expired := TokenService{Secret: ts.Secret, Issuer: ts.Issuer, Duration: -time.Minute}
	tok, _, err = expired.Sign(&User{ID: "u1"})
	require.NoError(t, err)
	_, err = ts.Parse(tok)
	assert.Error(t, err)

	wrongIssuer := TokenService{Secret: ts.Secret, Issuer: "someone-else", Duration: time.Hour}
	tok, _, err = wrongIssuer.Sign(&User{ID: "u1"})
	require.NoError(t, err)
	_, err = ts.Parse(tok)
	assert.Error(t, err)
}
