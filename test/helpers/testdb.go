package helpers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tradeup_backend/internal/models"
)

// CreateUser inserts a user, hashing the raw password if needed.
func CreateUser(t *testing.T, db *gorm.DB, user *models.User) error {
	if user.PasswordHash != "" && !strings.HasPrefix(user.PasswordHash, "$2a$") {
		rawPassword := user.PasswordHash
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		user.PasswordHash = string(hashedPassword)
	}

	result := db.Create(user)
	if result.Error != nil {
		t.Logf("failed to create user %s: %v", user.Email, result.Error)
		return result.Error
	}

	return nil
}

// CreateAndLoginUser creates a user and logs them in through the API.
func CreateAndLoginUser(t *testing.T, ts *TestServer, db *gorm.DB, name, email, password string) (string, *models.User) {
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: password,
	}
	err := CreateUser(t, db, user)
	require.NoError(t, err, "creating a test user must not fail")

	loginBody := map[string]interface{}{
		"email":    email,
		"password": password,
	}

	res, bodyStr := ts.SendRequest(t, http.MethodPost, "/api/v1/auth/login", "", loginBody)
	require.Equal(t, http.StatusOK, res.StatusCode, "login must succeed. Response: "+bodyStr)

	var loginResponse struct {
		Token string `json:"token"`
	}
	err = json.Unmarshal([]byte(bodyStr), &loginResponse)
	require.NoError(t, err)
	require.NotEmpty(t, loginResponse.Token)

	user.PasswordHash = password

	return loginResponse.Token, user
}

// MakeContacts inserts a confirmed contact pair directly.
func MakeContacts(t *testing.T, db *gorm.DB, userID, contactID string) {
	pair := []models.Contact{
		{UserID: userID, ContactID: contactID},
		{UserID: contactID, ContactID: userID},
	}
	err := db.Create(&pair).Error
	assert.NoError(t, err, "creating a contact pair must not fail")
}

// CreateTestDealroom opens a dealroom through the API and returns its
// id. The creator becomes buyer, the contact seller.
func CreateTestDealroom(t *testing.T, ts *TestServer, creatorToken, contactID string) string {
	body := map[string]interface{}{
		"contact_id": contactID,
	}
	res, bodyStr := ts.SendRequest(t, http.MethodPost, "/api/v1/dealrooms", creatorToken, body)
	require.Equal(t, http.StatusCreated, res.StatusCode, "dealroom creation must succeed. Response: "+bodyStr)

	var created struct {
		ID string `json:"id"`
	}
	err := json.Unmarshal([]byte(bodyStr), &created)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	return created.ID
}
