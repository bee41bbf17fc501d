package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeup_backend/internal/models"
	"tradeup_backend/pkg/apperrors"
)

func TestStage0_SingleReadyIsAcknowledged(t *testing.T) {
	s := StageSnapshot{Stage: models.DealStage0}

	out, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionReady, nil)
	require.NoError(t, err)

	assert.True(t, out.BuyerReady)
	assert.False(t, out.SellerReady)
	assert.False(t, out.Advanced)
	assert.Equal(t, models.DealStage0, out.Stage)
	assert.Equal(t, "Buyer marked ready.", out.Message)

	out, err = EvaluateStageAction(s, models.DealRoleSeller, ActionReady, nil)
	require.NoError(t, err)
	assert.Equal(t, "Seller marked ready.", out.Message)
}

func TestStage0_BothReadyWithoutDocsStays(t *testing.T) {
	s := StageSnapshot{
		Stage:      models.DealStage0,
		BuyerReady: true,
	}

	out, err := EvaluateStageAction(s, models.DealRoleSeller, ActionReady, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DealStage0, out.Stage)
	assert.False(t, out.Advanced)
	assert.Contains(t, out.Message, "initial documents are not yet uploaded or verified")
}

func TestStage0_OneSidedDocsStays(t *testing.T) {
	s := StageSnapshot{
		Stage:                models.DealStage0,
		BuyerReady:           true,
		BuyerVerifiedPrivate: 2,
	}

	out, err := EvaluateStageAction(s, models.DealRoleSeller, ActionReady, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DealStage0, out.Stage)
	assert.False(t, out.Advanced)
}

func TestStage0_AdvancesAndResetsFlags(t *testing.T) {
	s := StageSnapshot{
		Stage:                 models.DealStage0,
		BuyerReady:            true,
		BuyerVerifiedPrivate:  1,
		SellerVerifiedPrivate: 1,
	}

	out, err := EvaluateStageAction(s, models.DealRoleSeller, ActionReady, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DealStage1, out.Stage)
	assert.True(t, out.Advanced)
	assert.False(t, out.BuyerReady)
	assert.False(t, out.SellerReady)
	assert.Equal(t, "Dealroom moved to Stage 1: Negotiation.", out.Message)
}

func TestStage0_RejectsOtherActions(t *testing.T) {
	s := StageSnapshot{Stage: models.DealStage0}

	for _, action := range []StageAction{ActionBuildContract, ActionAgreeContract, ActionLoadMoney, ActionFinalGreenLight} {
		_, err := EvaluateStageAction(s, models.DealRoleBuyer, action, nil)
		require.Error(t, err, string(action))

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeInvalidTransition, appErr.Code)
	}
}

func TestStage1_MutualReadyAdvances(t *testing.T) {
	s := StageSnapshot{Stage: models.DealStage1, SellerReady: true}

	out, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionReady, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DealStage2, out.Stage)
	assert.True(t, out.Advanced)
	assert.False(t, out.BuyerReady)
	assert.False(t, out.SellerReady)
}

func TestStage2_BuildContract(t *testing.T) {
	s := StageSnapshot{Stage: models.DealStage2}

	// Missing contract data is rejected.
	_, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionBuildContract, nil)
	require.Error(t, err)

	// Only the buyer can build.
	_, err = EvaluateStageAction(s, models.DealRoleSeller, ActionBuildContract, map[string]interface{}{"price": 100})
	require.Error(t, err)

	out, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionBuildContract, map[string]interface{}{"price": 100})
	require.NoError(t, err)

	assert.Equal(t, models.DealStage2, out.Stage)
	assert.True(t, out.BuyerReady)
	assert.False(t, out.SellerReady)
	assert.NotNil(t, out.Contract)
	assert.False(t, out.Advanced)
}

func TestStage2_RebuildResetsSellerAgreement(t *testing.T) {
	s := StageSnapshot{
		Stage:       models.DealStage2,
		BuyerReady:  true,
		SellerReady: true,
		Contract:    map[string]interface{}{"price": 100},
	}

	out, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionBuildContract, map[string]interface{}{"price": 200})
	require.NoError(t, err)

	assert.False(t, out.SellerReady)
	assert.Equal(t, map[string]interface{}{"price": 200}, out.Contract)
}

func TestStage2_AgreeRequiresContract(t *testing.T) {
	s := StageSnapshot{Stage: models.DealStage2}

	_, err := EvaluateStageAction(s, models.DealRoleSeller, ActionAgreeContract, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrContractMissing)
}

func TestStage2_AgreeAdvances(t *testing.T) {
	s := StageSnapshot{
		Stage:      models.DealStage2,
		BuyerReady: true,
		Contract:   map[string]interface{}{"price": 100},
	}

	// The buyer cannot agree to their own contract.
	_, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionAgreeContract, nil)
	require.Error(t, err)

	out, err := EvaluateStageAction(s, models.DealRoleSeller, ActionAgreeContract, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DealStage3, out.Stage)
	assert.True(t, out.Advanced)
	assert.True(t, out.BuyerReady)
	assert.True(t, out.SellerReady)
}

func TestStage3_LoadMoneyIsAttestationOnly(t *testing.T) {
	s := StageSnapshot{Stage: models.DealStage3, BuyerReady: true, SellerReady: true}

	out, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionLoadMoney, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DealStage3, out.Stage)
	assert.False(t, out.Advanced)
	assert.Contains(t, out.Message, "on-ramped to USDC")

	// The seller cannot load money.
	_, err = EvaluateStageAction(s, models.DealRoleSeller, ActionLoadMoney, nil)
	require.Error(t, err)
}

func TestStage3_GreenLightBeforePartner(t *testing.T) {
	s := StageSnapshot{
		Stage:    models.DealStage3,
		Contract: map[string]interface{}{"conditionsMet": true},
	}

	out, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionFinalGreenLight, nil)
	require.NoError(t, err)

	assert.True(t, out.FinalGreenLight)
	assert.True(t, out.BuyerReady)
	assert.False(t, out.Closed)
	assert.Equal(t, "Buyer gave final green light.", out.Message)
}

func TestStage3_GreenLightConditionsNotMet(t *testing.T) {
	s := StageSnapshot{
		Stage:       models.DealStage3,
		BuyerReady:  true,
		SellerReady: true,
		Contract:    map[string]interface{}{"price": 100},
	}

	out, err := EvaluateStageAction(s, models.DealRoleSeller, ActionFinalGreenLight, nil)
	require.NoError(t, err)

	assert.False(t, out.Closed)
	assert.Equal(t, models.DealStage3, out.Stage)
	assert.Equal(t, "Contract conditions are not yet met.", out.Message)
}

func TestStage3_GreenLightCloses(t *testing.T) {
	s := StageSnapshot{
		Stage:       models.DealStage3,
		BuyerReady:  true,
		SellerReady: true,
		Contract:    map[string]interface{}{"conditionsMet": true},
	}

	out, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionFinalGreenLight, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DealStageClosed, out.Stage)
	assert.True(t, out.Closed)
	assert.True(t, out.Advanced)
	assert.Equal(t, "Deal Closed! Money off-ramped to seller (simulated).", out.Message)
}

func TestStage3_ConditionsMetMustBeBool(t *testing.T) {
	s := StageSnapshot{
		Stage:       models.DealStage3,
		BuyerReady:  true,
		SellerReady: true,
		Contract:    map[string]interface{}{"conditionsMet": "yes"},
	}

	out, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionFinalGreenLight, nil)
	require.NoError(t, err)

	assert.False(t, out.Closed)
}

func TestClosedRoomRejectsEverything(t *testing.T) {
	s := StageSnapshot{Stage: models.DealStageClosed}

	for _, action := range []StageAction{ActionReady, ActionBuildContract, ActionAgreeContract, ActionLoadMoney, ActionFinalGreenLight} {
		_, err := EvaluateStageAction(s, models.DealRoleBuyer, action, nil)
		require.Error(t, err, string(action))
		assert.ErrorIs(t, err, apperrors.ErrDealroomClosed)
	}
}

func TestPendingStageIsNotActionable(t *testing.T) {
	s := StageSnapshot{Stage: models.DealStagePending}

	_, err := EvaluateStageAction(s, models.DealRoleBuyer, ActionReady, nil)
	require.Error(t, err)
}

func TestEveryAdvanceMovesExactlyOneStage(t *testing.T) {
	steps := []struct {
		name     string
		snapshot StageSnapshot
		role     models.DealRole
		action   StageAction
		data     map[string]interface{}
	}{
		{
			name: "stage_0 ready",
			snapshot: StageSnapshot{
				Stage:                 models.DealStage0,
				BuyerReady:            true,
				BuyerVerifiedPrivate:  1,
				SellerVerifiedPrivate: 1,
			},
			role:   models.DealRoleSeller,
			action: ActionReady,
		},
		{
			name:     "stage_1 ready",
			snapshot: StageSnapshot{Stage: models.DealStage1, SellerReady: true},
			role:     models.DealRoleBuyer,
			action:   ActionReady,
		},
		{
			name: "stage_2 agree_contract",
			snapshot: StageSnapshot{
				Stage:      models.DealStage2,
				BuyerReady: true,
				Contract:   map[string]interface{}{"price": 100.0},
			},
			role:   models.DealRoleSeller,
			action: ActionAgreeContract,
		},
		{
			name: "stage_3 final_green_light",
			snapshot: StageSnapshot{
				Stage:       models.DealStage3,
				BuyerReady:  true,
				SellerReady: true,
				Contract:    map[string]interface{}{"conditionsMet": true},
			},
			role:   models.DealRoleBuyer,
			action: ActionFinalGreenLight,
		},
	}

	for _, step := range steps {
		out, err := EvaluateStageAction(step.snapshot, step.role, step.action, step.data)
		require.NoError(t, err, step.name)
		require.True(t, out.Advanced, step.name)
		assert.Equal(t, models.StageOrder(step.snapshot.Stage)+1, models.StageOrder(out.Stage),
			"%s must advance by exactly one stage", step.name)
	}
}
