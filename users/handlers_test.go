package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/usermgmt-go/auth"
	"github.com/user/usermgmt-go/config"
)

// newTestRouter wires the users routes the same way main does.
func newTestRouter() (*chi.Mux, *memoryDirectory) {
	dir := newMemoryDirectory()
	issuer := auth.NewIssuer(config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenDuration: 24 * time.Hour,
	})
	handlers := NewUserHandlers(NewAccountService(dir, issuer))

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", handlers.HandleRegister())
		r.Post("/login", handlers.HandleLogin())

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(issuer, dir))

			r.Get("/", handlers.HandleListUsers())
			r.Get("/{id}", handlers.HandleGetUser())
			r.Put("/{id}", handlers.HandleUpdateUser())
			r.Delete("/{id}", handlers.HandleDeleteUser())
		})
	})
	return r, dir
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, router http.Handler, email, name, password string) TokenResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/users/register", "", RegisterRequest{
		Email: email, Name: name, Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUserLifecycle(t *testing.T) {
	router, _ := newTestRouter()

	alice := registerUser(t, router, "a@x.com", "Alice", "secret1")
	assert.Equal(t, "bearer", alice.TokenType)
	assert.NotEmpty(t, alice.AccessToken)

	// Listing without a token is challenged.
	rec := doJSON(t, router, http.MethodGet, "/users/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	// With the token the list is visible and contains Alice, with no
	// password material anywhere in the payload.
	rec = doJSON(t, router, http.MethodGet, "/users/", alice.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a@x.com")
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	// A second account so the directory stays reachable after Alice is gone.
	bob := registerUser(t, router, "b@x.com", "Bob", "secret2")

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/users/%d", alice.User.ID), alice.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User deleted successfully")

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/users/%d", alice.User.ID), bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Alice's token still verifies, but its subject no longer resolves.
	rec = doJSON(t, router, http.MethodGet, "/users/", alice.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterHandler_Errors(t *testing.T) {
	router, _ := newTestRouter()

	registerUser(t, router, "a@x.com", "Alice", "secret1")

	tests := []struct {
		name       string
		body       RegisterRequest
		wantStatus int
	}{
		{
			name:       "duplicate email",
			body:       RegisterRequest{Email: "A@X.com", Name: "Imposter", Password: "secret2"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "short password",
			body:       RegisterRequest{Email: "c@x.com", Name: "Carol", Password: "nope"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "short name",
			body:       RegisterRequest{Email: "c@x.com", Name: "C", Password: "secret1"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/users/register", "", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	router, _ := newTestRouter()

	registerUser(t, router, "a@x.com", "Alice", "secret1")

	rec := doJSON(t, router, http.MethodPost, "/users/login", "", LoginRequest{Email: "a@x.com", Password: "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(86400), resp.ExpiresIn)
	assert.Equal(t, "a@x.com", resp.User.Email)

	// Bad password and unknown email produce identical responses.
	recBadPassword := doJSON(t, router, http.MethodPost, "/users/login", "", LoginRequest{Email: "a@x.com", Password: "wrong"})
	recUnknownEmail := doJSON(t, router, http.MethodPost, "/users/login", "", LoginRequest{Email: "z@x.com", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, recBadPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, recUnknownEmail.Code)
	assert.Equal(t, recBadPassword.Body.String(), recUnknownEmail.Body.String())
}

func TestUpdateHandler(t *testing.T) {
	router, _ := newTestRouter()

	alice := registerUser(t, router, "a@x.com", "Alice", "secret1")

	name := "Alice Cooper"
	rec := doJSON(t, router, http.MethodPut, fmt.Sprintf("/users/%d", alice.User.ID), alice.AccessToken, UpdateUserRequest{Name: &name})
	assert.Equal(t, http.StatusOK, rec.Code)

	var updated UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Alice Cooper", updated.Name)
	assert.Equal(t, "a@x.com", updated.Email)

	// Unknown id and malformed id parameters.
	rec = doJSON(t, router, http.MethodPut, "/users/999", alice.AccessToken, UpdateUserRequest{Name: &name})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/abc", alice.AccessToken, UpdateUserRequest{Name: &name})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
