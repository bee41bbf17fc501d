package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeup_backend/internal/models"
	"tradeup_backend/test/helpers"
)

func TestContactRequestFlow(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	senderToken, sender := helpers.CreateAndLoginUser(t, ts, ts.DB, "Sender", "sender@test.com", "password123")
	receiverToken, receiver := helpers.CreateAndLoginUser(t, ts, ts.DB, "Receiver", "receiver@test.com", "password123")

	// Send a contact request.
	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/contacts/requests", senderToken, map[string]interface{}{
		"receiver_id": receiver.ID,
	})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &created))
	require.NotEmpty(t, created.ID)

	// The receiver sees it in their incoming list.
	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/contacts/requests", receiverToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, created.ID)
	assert.Contains(t, bodyStr, "Sender")

	// The receiver got a notification.
	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/notifications", receiverToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, models.NotificationTypeContactRequest)

	// Accept it.
	res, _ = ts.SendRequest(t, "PUT", "/api/v1/contacts/requests/"+created.ID+"/accept", receiverToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// Both sides now list each other as contacts.
	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/contacts", senderToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, receiver.ID)

	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/contacts", receiverToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, sender.ID)

	// The sender got an acceptance notification.
	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/notifications", senderToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, models.NotificationTypeContactAccepted)
}

func TestContactRequest_ToSelf(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	token, user := helpers.CreateAndLoginUser(t, ts, ts.DB, "Loner", "loner@test.com", "password123")

	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/contacts/requests", token, map[string]interface{}{
		"receiver_id": user.ID,
	})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "yourself")
}

func TestContactRequest_AcceptByWrongUser(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	senderToken, _ := helpers.CreateAndLoginUser(t, ts, ts.DB, "Sender", "sender2@test.com", "password123")
	_, receiver := helpers.CreateAndLoginUser(t, ts, ts.DB, "Receiver", "receiver2@test.com", "password123")
	strangerToken, _ := helpers.CreateAndLoginUser(t, ts, ts.DB, "Stranger", "stranger@test.com", "password123")

	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/contacts/requests", senderToken, map[string]interface{}{
		"receiver_id": receiver.ID,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &created))

	// Only the receiver may accept.
	res, _ = ts.SendRequest(t, "PUT", "/api/v1/contacts/requests/"+created.ID+"/accept", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestContactRequest_Duplicate(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	senderToken, _ := helpers.CreateAndLoginUser(t, ts, ts.DB, "Sender", "sender3@test.com", "password123")
	_, receiver := helpers.CreateAndLoginUser(t, ts, ts.DB, "Receiver", "receiver3@test.com", "password123")

	body := map[string]interface{}{"receiver_id": receiver.ID}

	res, _ := ts.SendRequest(t, "POST", "/api/v1/contacts/requests", senderToken, body)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res, _ = ts.SendRequest(t, "POST", "/api/v1/contacts/requests", senderToken, body)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}
