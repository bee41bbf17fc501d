package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeup_backend/internal/models"
	"tradeup_backend/test/helpers"
)

func advanceStage(t *testing.T, ts *helpers.TestServer, token, dealroomID, action string, contractData map[string]interface{}) (int, string) {
	body := map[string]interface{}{"action": action}
	if contractData != nil {
		body["contract_data"] = contractData
	}
	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/dealrooms/"+dealroomID+"/advance-stage", token, body)
	return res.StatusCode, bodyStr
}

func TestCreateDealroom_RequiresContact(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	creatorToken, _ := helpers.CreateAndLoginUser(t, ts, ts.DB, "Creator", "creator@test.com", "password123")
	_, other := helpers.CreateAndLoginUser(t, ts, ts.DB, "Other", "other@test.com", "password123")

	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/dealrooms", creatorToken, map[string]interface{}{
		"contact_id": other.ID,
	})

	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, bodyStr, "not in your contact list")
}

func TestCreateDealroom_WithSelf(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	token, user := helpers.CreateAndLoginUser(t, ts, ts.DB, "Solo", "solo@test.com", "password123")

	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/dealrooms", token, map[string]interface{}{
		"contact_id": user.ID,
	})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "yourself")
}

func TestCreateDealroom_Success(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	buyerToken, buyer := helpers.CreateAndLoginUser(t, ts, ts.DB, "Buyer", "buyer@test.com", "password123")
	sellerToken, seller := helpers.CreateAndLoginUser(t, ts, ts.DB, "Seller", "seller@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, buyer.ID, seller.ID)

	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/dealrooms", buyerToken, map[string]interface{}{
		"contact_id": seller.ID,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, bodyStr)

	var created struct {
		ID       string `json:"id"`
		Stage    string `json:"stage"`
		BuyerID  string `json:"buyer_id"`
		SellerID string `json:"seller_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &created))
	assert.Equal(t, "stage_0", created.Stage)
	assert.Equal(t, buyer.ID, created.BuyerID)
	assert.Equal(t, seller.ID, created.SellerID)

	// The seller got an invite and a notification for it.
	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/dealrooms/invites/incoming", sellerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, created.ID)

	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/notifications", sellerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, models.NotificationTypeDealroomInvite)

	// A second active room with the same contact is rejected.
	res, _ = ts.SendRequest(t, "POST", "/api/v1/dealrooms", buyerToken, map[string]interface{}{
		"contact_id": seller.ID,
	})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestCreateDealroom_CreatorAsSeller(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	creatorToken, creator := helpers.CreateAndLoginUser(t, ts, ts.DB, "Creator", "creator@test.com", "password123")
	_, partner := helpers.CreateAndLoginUser(t, ts, ts.DB, "Partner", "partner@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, creator.ID, partner.ID)

	res, bodyStr := ts.SendRequest(t, "POST", "/api/v1/dealrooms", creatorToken, map[string]interface{}{
		"contact_id": partner.ID,
		"role":       "seller",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, bodyStr)

	var created struct {
		BuyerID  string `json:"buyer_id"`
		SellerID string `json:"seller_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &created))
	assert.Equal(t, partner.ID, created.BuyerID)
	assert.Equal(t, creator.ID, created.SellerID)

	// An unknown role is rejected before any write happens.
	res, _ = ts.SendRequest(t, "POST", "/api/v1/dealrooms", creatorToken, map[string]interface{}{
		"contact_id": partner.ID,
		"role":       "broker",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDealroomLifecycle_FullFlow(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	buyerToken, buyer := helpers.CreateAndLoginUser(t, ts, ts.DB, "Buyer", "buyer@test.com", "password123")
	sellerToken, seller := helpers.CreateAndLoginUser(t, ts, ts.DB, "Seller", "seller@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, buyer.ID, seller.ID)

	roomID := helpers.CreateTestDealroom(t, ts, buyerToken, seller.ID)

	// Stage 0: one side ready is only an acknowledgement.
	status, body := advanceStage(t, ts, buyerToken, roomID, "ready", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Buyer marked ready.")

	// Both ready but no verified documents: the room stays put.
	status, body = advanceStage(t, ts, sellerToken, roomID, "ready", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "initial documents are not yet uploaded or verified")

	var room models.Dealroom
	require.NoError(t, ts.DB.First(&room, "id = ?", roomID).Error)
	assert.Equal(t, models.DealStage0, room.Stage)

	// With one verified private document per side the gate opens.
	CreateVerifiedDocument(t, ts.DB, roomID, buyer.ID)
	CreateVerifiedDocument(t, ts.DB, roomID, seller.ID)

	status, body = advanceStage(t, ts, sellerToken, roomID, "ready", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Dealroom moved to Stage 1: Negotiation.")

	// Readiness flags reset on every advance.
	require.NoError(t, ts.DB.First(&room, "id = ?", roomID).Error)
	assert.Equal(t, models.DealStage1, room.Stage)
	assert.False(t, room.BuyerReady)
	assert.False(t, room.SellerReady)

	// Stage 1: plain mutual ready.
	status, _ = advanceStage(t, ts, buyerToken, roomID, "ready", nil)
	require.Equal(t, http.StatusOK, status)
	status, body = advanceStage(t, ts, sellerToken, roomID, "ready", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Dealroom moved to Stage 2")

	// Stage 2: the seller cannot build, the buyer cannot agree.
	status, _ = advanceStage(t, ts, sellerToken, roomID, "build_contract", map[string]interface{}{"price": 100})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = advanceStage(t, ts, buyerToken, roomID, "agree_contract", nil)
	assert.Equal(t, http.StatusConflict, status)

	// Agreeing before any contract exists is rejected.
	status, body = advanceStage(t, ts, sellerToken, roomID, "agree_contract", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "No contract has been built yet")

	// The buyer builds the contract.
	status, body = advanceStage(t, ts, buyerToken, roomID, "build_contract", map[string]interface{}{
		"price":         100,
		"conditionsMet": true,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Buyer has built the smart contract. Waiting for seller review.")

	// The seller agrees, moving to stage 3.
	status, body = advanceStage(t, ts, sellerToken, roomID, "agree_contract", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Dealroom moved to Stage 3: Funding & Execution.")

	// Stage 3: money load is an attestation with no state change.
	status, body = advanceStage(t, ts, buyerToken, roomID, "load_money", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "on-ramped to USDC")

	// Both parties entered stage 3 ready (build and agree set their
	// flags), so the first green light completes the deal.
	status, body = advanceStage(t, ts, buyerToken, roomID, "final_green_light", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Deal Closed! Money off-ramped to seller (simulated).")

	require.NoError(t, ts.DB.First(&room, "id = ?", roomID).Error)
	assert.Equal(t, models.DealStageClosed, room.Stage)
	assert.False(t, room.IsActive)

	// A closed room rejects any further action.
	status, body = advanceStage(t, ts, buyerToken, roomID, "ready", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "Dealroom is closed")
}

func TestDealroomLifecycle_ConditionsNotMet(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	buyerToken, buyer := helpers.CreateAndLoginUser(t, ts, ts.DB, "Buyer", "buyer@test.com", "password123")
	sellerToken, seller := helpers.CreateAndLoginUser(t, ts, ts.DB, "Seller", "seller@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, buyer.ID, seller.ID)

	roomID := helpers.CreateTestDealroom(t, ts, buyerToken, seller.ID)
	CreateVerifiedDocument(t, ts.DB, roomID, buyer.ID)
	CreateVerifiedDocument(t, ts.DB, roomID, seller.ID)

	// Walk to stage 3 with a contract whose conditions are not met.
	advanceStage(t, ts, buyerToken, roomID, "ready", nil)
	advanceStage(t, ts, sellerToken, roomID, "ready", nil)
	advanceStage(t, ts, buyerToken, roomID, "ready", nil)
	advanceStage(t, ts, sellerToken, roomID, "ready", nil)
	advanceStage(t, ts, buyerToken, roomID, "build_contract", map[string]interface{}{"price": 50})
	advanceStage(t, ts, sellerToken, roomID, "agree_contract", nil)

	status, body := advanceStage(t, ts, buyerToken, roomID, "final_green_light", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Contract conditions are not yet met.")

	var room models.Dealroom
	require.NoError(t, ts.DB.First(&room, "id = ?", roomID).Error)
	assert.Equal(t, models.DealStage3, room.Stage)
	assert.True(t, room.IsActive)
}

func TestDealroom_NonParticipantDenied(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	buyerToken, buyer := helpers.CreateAndLoginUser(t, ts, ts.DB, "Buyer", "buyer@test.com", "password123")
	_, seller := helpers.CreateAndLoginUser(t, ts, ts.DB, "Seller", "seller@test.com", "password123")
	strangerToken, _ := helpers.CreateAndLoginUser(t, ts, ts.DB, "Stranger", "stranger@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, buyer.ID, seller.ID)

	roomID := helpers.CreateTestDealroom(t, ts, buyerToken, seller.ID)

	res, _ := ts.SendRequest(t, "GET", "/api/v1/dealrooms/"+roomID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	status, _ := advanceStage(t, ts, strangerToken, roomID, "ready", nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestDealroomStage0_ConcurrentReady(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	buyerToken, buyer := helpers.CreateAndLoginUser(t, ts, ts.DB, "Buyer", "buyer@test.com", "password123")
	sellerToken, seller := helpers.CreateAndLoginUser(t, ts, ts.DB, "Seller", "seller@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, buyer.ID, seller.ID)

	roomID := helpers.CreateTestDealroom(t, ts, buyerToken, seller.ID)
	CreateVerifiedDocument(t, ts.DB, roomID, buyer.ID)
	CreateVerifiedDocument(t, ts.DB, roomID, seller.ID)

	// Both sides fire ready at the same moment. The row lock must
	// serialize them: one acknowledgement, one advance, never two.
	type result struct {
		status int
		body   string
		err    error
	}
	results := make(chan result, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, token := range []string{buyerToken, sellerToken} {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			<-start

			req, err := http.NewRequest("POST",
				ts.Server.URL+"/api/v1/dealrooms/"+roomID+"/advance-stage",
				bytes.NewReader([]byte(`{"action":"ready"}`)))
			if err != nil {
				results <- result{err: err}
				return
			}
			req.Header.Set("Authorization", "Bearer "+tok)
			req.Header.Set("Content-Type", "application/json")

			res, err := ts.Server.Client().Do(req)
			if err != nil {
				results <- result{err: err}
				return
			}
			resBody, err := io.ReadAll(res.Body)
			res.Body.Close()
			results <- result{status: res.StatusCode, body: string(resBody), err: err}
		}(token)
	}
	close(start)
	wg.Wait()
	close(results)

	advanced := 0
	for r := range results {
		require.NoError(t, r.err)
		require.Equal(t, http.StatusOK, r.status, r.body)

		var resp struct {
			Advanced bool   `json:"advanced"`
			NewStage string `json:"new_stage"`
		}
		require.NoError(t, json.Unmarshal([]byte(r.body), &resp))
		if resp.Advanced {
			advanced++
			assert.Equal(t, "stage_1", resp.NewStage)
		}
	}
	assert.Equal(t, 1, advanced)

	var room models.Dealroom
	require.NoError(t, ts.DB.First(&room, "id = ?", roomID).Error)
	assert.Equal(t, models.DealStage1, room.Stage)
	assert.False(t, room.BuyerReady)
	assert.False(t, room.SellerReady)
}

func TestDealroom_UploadConstraints(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	buyerToken, buyer := helpers.CreateAndLoginUser(t, ts, ts.DB, "Buyer", "buyer@test.com", "password123")
	_, seller := helpers.CreateAndLoginUser(t, ts, ts.DB, "Seller", "seller@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, buyer.ID, seller.ID)

	roomID := helpers.CreateTestDealroom(t, ts, buyerToken, seller.ID)
	uploadPath := "/api/v1/dealrooms/" + roomID + "/documents"

	// Executables are not on the document whitelist.
	res, bodyStr := ts.SendFile(t, uploadPath, buyerToken,
		"malware.exe", "application/x-msdownload", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "allowed")

	// One byte past the 20MB cap.
	oversized := bytes.Repeat([]byte("a"), 20*1024*1024+1)
	res, bodyStr = ts.SendFile(t, uploadPath, buyerToken,
		"big.pdf", "application/pdf", oversized)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, bodyStr, "maximum upload size")

	// A small PDF passes both checks.
	res, bodyStr = ts.SendFile(t, uploadPath, buyerToken,
		"proof.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, res.StatusCode, bodyStr)
	assert.Contains(t, bodyStr, "proof.pdf")
}

func TestDealroom_DocumentVisibility(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	buyerToken, buyer := helpers.CreateAndLoginUser(t, ts, ts.DB, "Buyer", "buyer@test.com", "password123")
	sellerToken, seller := helpers.CreateAndLoginUser(t, ts, ts.DB, "Seller", "seller@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, buyer.ID, seller.ID)

	roomID := helpers.CreateTestDealroom(t, ts, buyerToken, seller.ID)

	// Stage 0 uploads are private to their uploader.
	buyerDoc := CreateVerifiedDocument(t, ts.DB, roomID, buyer.ID)
	sellerDoc := CreateVerifiedDocument(t, ts.DB, roomID, seller.ID)

	res, bodyStr := ts.SendRequest(t, "GET", "/api/v1/dealrooms/"+roomID, buyerToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, buyerDoc.ID)
	assert.NotContains(t, bodyStr, sellerDoc.ID)

	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/dealrooms/"+roomID, sellerToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, sellerDoc.ID)
	assert.NotContains(t, bodyStr, buyerDoc.ID)

	// Advance past stage 0; later uploads are shared but the stored
	// visibility of earlier ones never changes.
	advanceStage(t, ts, buyerToken, roomID, "ready", nil)
	advanceStage(t, ts, sellerToken, roomID, "ready", nil)

	sharedDoc := models.Document{
		DealroomID:         roomID,
		UploaderID:         buyer.ID,
		FileName:           "terms.pdf",
		FilePath:           "dealrooms/" + roomID + "/terms.pdf",
		VerificationStatus: models.VerificationVerified,
		IsVisibleToAll:     true,
	}
	require.NoError(t, ts.DB.Create(&sharedDoc).Error)

	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/dealrooms/"+roomID, sellerToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, sharedDoc.ID)
	assert.NotContains(t, bodyStr, buyerDoc.ID)
}

func TestDealroomInvite_AcceptAndReject(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables()

	buyerToken, buyer := helpers.CreateAndLoginUser(t, ts, ts.DB, "Buyer", "buyer@test.com", "password123")
	sellerToken, seller := helpers.CreateAndLoginUser(t, ts, ts.DB, "Seller", "seller@test.com", "password123")
	helpers.MakeContacts(t, ts.DB, buyer.ID, seller.ID)

	helpers.CreateTestDealroom(t, ts, buyerToken, seller.ID)

	res, bodyStr := ts.SendRequest(t, "GET", "/api/v1/dealrooms/invites/incoming", sellerToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var invites struct {
		Invites []struct {
			ID string `json:"id"`
		} `json:"invites"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodyStr), &invites))
	require.Len(t, invites.Invites, 1)
	inviteID := invites.Invites[0].ID

	// Only the receiver may accept.
	res, _ = ts.SendRequest(t, "PUT", "/api/v1/dealrooms/invites/"+inviteID+"/accept", buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = ts.SendRequest(t, "PUT", "/api/v1/dealrooms/invites/"+inviteID+"/accept", sellerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// The creator gets an acceptance notification.
	res, bodyStr = ts.SendRequest(t, "GET", "/api/v1/notifications", buyerToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, bodyStr, models.NotificationTypeDealroomAccepted)

	// Accepting twice is rejected.
	res, _ = ts.SendRequest(t, "PUT", "/api/v1/dealrooms/invites/"+inviteID+"/accept", sellerToken, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
