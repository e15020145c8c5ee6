package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OriflamCodeGamming/MoodCrowd/internal/middleware"
	"github.com/OriflamCodeGamming/MoodCrowd/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", Register)
	r.POST("/auth/login", Login)
	return r
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegisterSuccess(t *testing.T) {
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("dj@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	router := newAuthRouter()
	resp := postJSON(t, router, "/auth/register", gin.H{
		"email":    "DJ@Example.com",
		"password": "hunter2hunter2",
	})

	mustStatus(t, resp.Code, http.StatusCreated)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("dj@example.com", sqlmock.AnyArg()).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

	router := newAuthRouter()
	resp := postJSON(t, router, "/auth/register", gin.H{
		"email":    "dj@example.com",
		"password": "hunter2hunter2",
	})

	mustStatus(t, resp.Code, http.StatusConflict)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	router := newAuthRouter()
	resp := postJSON(t, router, "/auth/register", gin.H{"email": "dj@example.com"})

	mustStatus(t, resp.Code, http.StatusBadRequest)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("DB should not be touched on invalid input: %v", err)
	}
}

func TestLoginSuccessSetsSessionCookie(t *testing.T) {
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	hash, err := utils.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	mock.ExpectQuery("SELECT id, email, password_hash FROM users").
		WithArgs("dj@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}).
			AddRow(7, "dj@example.com", hash))

	router := newAuthRouter()
	resp := postJSON(t, router, "/auth/login", gin.H{
		"email":    "dj@example.com",
		"password": "hunter2hunter2",
	})

	mustStatus(t, resp.Code, http.StatusOK)

	var session *http.Cookie
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			session = cookie
		}
	}
	if session == nil {
		t.Fatal("expected session cookie to be set")
	}
	if session.Value == "" {
		t.Error("session cookie has no value")
	}
	if !session.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	claims, err := utils.ValidateToken(session.Value)
	if err != nil {
		t.Fatalf("session cookie does not hold a valid token: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("expected user ID 7 in token, got %d", claims.UserID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	hash, err := utils.HashPassword("the-real-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	mock.ExpectQuery("SELECT id, email, password_hash FROM users").
		WithArgs("dj@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}).
			AddRow(7, "dj@example.com", hash))

	router := newAuthRouter()
	resp := postJSON(t, router, "/auth/login", gin.H{
		"email":    "dj@example.com",
		"password": "not-the-password",
	})

	mustStatus(t, resp.Code, http.StatusUnauthorized)
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			t.Error("no session cookie should be issued on failed login")
		}
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, email, password_hash FROM users").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}))

	router := newAuthRouter()
	resp := postJSON(t, router, "/auth/login", gin.H{
		"email":    "nobody@example.com",
		"password": "whatever",
	})

	mustStatus(t, resp.Code, http.StatusUnauthorized)
	body := resp.Body.String()
	if !strings.Contains(body, "Invalid credentials") {
		t.Errorf("unknown email and wrong password must be indistinguishable, got %s", body)
	}
}
