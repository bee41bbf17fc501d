package integration_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"tradeup_backend/internal/models"
	"tradeup_backend/test/helpers"
)

func TestAuthFlow(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	registerBody := map[string]interface{}{
		"name":     "Alice Trader",
		"email":    "alice@test.com",
		"password": "super_password123",
	}

	regRes, regBodyStr := ts.SendRequest(t, "POST", "/api/v1/auth/register", "", registerBody)

	assert.Equal(t, http.StatusCreated, regRes.StatusCode)
	assert.Contains(t, regBodyStr, "token")
	assert.Contains(t, regBodyStr, "alice@test.com")

	loginBody := map[string]interface{}{
		"email":    "alice@test.com",
		"password": "super_password123",
	}
	logRes, logBodyStr := ts.SendRequest(t, "POST", "/api/v1/auth/login", "", loginBody)

	assert.Equal(t, http.StatusOK, logRes.StatusCode)
	assert.Contains(t, logBodyStr, "token")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	err := helpers.CreateUser(t, ts.DB, &models.User{
		Name:         "User One",
		Email:        "duplicate@test.com",
		PasswordHash: "pass123",
	})
	assert.NoError(t, err)

	registerBody := map[string]interface{}{
		"name":     "User Two",
		"email":    "duplicate@test.com",
		"password": "another_pass",
	}
	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/auth/register", "", registerBody)

	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, bodyStr, "Email already in use")
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	err := helpers.CreateUser(t, ts.DB, &models.User{
		Name:         "Bob Trader",
		Email:        "bob@test.com",
		PasswordHash: "correct_password",
	})
	assert.NoError(t, err)

	loginBody := map[string]interface{}{
		"email":    "bob@test.com",
		"password": "wrong_password",
	}
	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/auth/login", "", loginBody)

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, bodyStr, "Invalid email or password")
}

func TestProtectedRoute_NoToken(t *testing.T) {
	ts := GetTestServer(t)

	res, _ := ts.SendRequest(t, "GET", "/api/v1/dealrooms", "", nil)

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
