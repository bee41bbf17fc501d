package services

import (
	"fmt"

	"tradeup_backend/internal/models"
	"tradeup_backend/pkg/apperrors"
)

type StageAction string

const (
	ActionReady           StageAction = "ready"
	ActionBuildContract   StageAction = "build_contract"
	ActionAgreeContract   StageAction = "agree_contract"
	ActionLoadMoney       StageAction = "load_money"
	ActionFinalGreenLight StageAction = "final_green_light"
)

// StageSnapshot is the dealroom state a transition request is judged
// against. The caller reads it under the room's row lock so evaluation
// and commit see the same state.
type StageSnapshot struct {
	Stage                 models.DealStage
	BuyerReady            bool
	SellerReady           bool
	FinalGreenLight       bool
	Contract              map[string]interface{}
	BuyerVerifiedPrivate  int64
	SellerVerifiedPrivate int64
}

// StageOutcome is the full post-action state to commit. Contract is nil
// when the action leaves contract details untouched.
type StageOutcome struct {
	Stage           models.DealStage
	BuyerReady      bool
	SellerReady     bool
	FinalGreenLight bool
	Contract        map[string]interface{}
	Closed          bool
	Advanced        bool
	Message         string
}

// Named precondition predicates. Each guards one transition edge.

func bothReady(buyerReady, sellerReady bool) bool {
	return buyerReady && sellerReady
}

// bothHaveVerifiedPrivateDocs requires each role to have at least one
// verified document uploaded while the room was still in stage_0.
func bothHaveVerifiedPrivateDocs(s StageSnapshot) bool {
	return s.BuyerVerifiedPrivate > 0 && s.SellerVerifiedPrivate > 0
}

func contractBuilt(s StageSnapshot) bool {
	return len(s.Contract) > 0
}

func contractConditionsMet(s StageSnapshot) bool {
	met, ok := s.Contract["conditionsMet"].(bool)
	return ok && met
}

func invalidAction(action StageAction, stage models.DealStage) error {
	return apperrors.ErrInvalidTransition(
		fmt.Sprintf("invalid action %q for stage %s", action, stage))
}

// EvaluateStageAction applies the lifecycle transition table to a
// snapshot and returns the state to commit. It performs no I/O; an
// error means the request must leave the room untouched.
func EvaluateStageAction(s StageSnapshot, role models.DealRole, action StageAction, contractData map[string]interface{}) (StageOutcome, error) {
	out := StageOutcome{
		Stage:           s.Stage,
		BuyerReady:      s.BuyerReady,
		SellerReady:     s.SellerReady,
		FinalGreenLight: s.FinalGreenLight,
	}

	setCallerReady := func() {
		if role == models.DealRoleBuyer {
			out.BuyerReady = true
		} else {
			out.SellerReady = true
		}
	}

	switch s.Stage {
	case models.DealStage0:
		if action != ActionReady {
			return out, invalidAction(action, s.Stage)
		}
		setCallerReady()
		if !bothReady(out.BuyerReady, out.SellerReady) {
			out.Message = readyAckMessage(role)
			return out, nil
		}
		if !bothHaveVerifiedPrivateDocs(s) {
			out.Message = "Both parties are ready, but initial documents are not yet uploaded or verified."
			return out, nil
		}
		out.Stage = models.DealStage1
		out.BuyerReady = false
		out.SellerReady = false
		out.Advanced = true
		out.Message = "Dealroom moved to Stage 1: Negotiation."
		return out, nil

	case models.DealStage1:
		if action != ActionReady {
			return out, invalidAction(action, s.Stage)
		}
		setCallerReady()
		if !bothReady(out.BuyerReady, out.SellerReady) {
			out.Message = readyAckMessage(role)
			return out, nil
		}
		out.Stage = models.DealStage2
		out.BuyerReady = false
		out.SellerReady = false
		out.Advanced = true
		out.Message = "Dealroom moved to Stage 2: Contract Building & Wallet Setup."
		return out, nil

	case models.DealStage2:
		switch {
		case action == ActionBuildContract && role == models.DealRoleBuyer:
			if len(contractData) == 0 {
				return out, apperrors.NewBadRequestError("Contract data is required to build a contract")
			}
			// Any rebuild resets the seller's agreement.
			out.Contract = contractData
			out.BuyerReady = true
			out.SellerReady = false
			out.Message = "Buyer has built the smart contract. Waiting for seller review."
			return out, nil
		case action == ActionAgreeContract && role == models.DealRoleSeller:
			if !contractBuilt(s) {
				return out, apperrors.ErrContractMissing
			}
			out.Stage = models.DealStage3
			out.SellerReady = true
			out.Advanced = true
			out.Message = "Seller has agreed to the contract. Dealroom moved to Stage 3: Funding & Execution."
			return out, nil
		default:
			return out, invalidAction(action, s.Stage)
		}

	case models.DealStage3:
		switch {
		case action == ActionLoadMoney && role == models.DealRoleBuyer:
			// Attestation only, no state change.
			out.Message = "Buyer has loaded money and on-ramped to USDC (simulated)."
			return out, nil
		case action == ActionFinalGreenLight:
			setCallerReady()
			out.FinalGreenLight = true
			if !bothReady(out.BuyerReady, out.SellerReady) {
				if role == models.DealRoleBuyer {
					out.Message = "Buyer gave final green light."
				} else {
					out.Message = "Seller gave final green light."
				}
				return out, nil
			}
			if !contractConditionsMet(s) {
				out.Message = "Contract conditions are not yet met."
				return out, nil
			}
			out.Stage = models.DealStageClosed
			out.Closed = true
			out.Advanced = true
			out.Message = "Deal Closed! Money off-ramped to seller (simulated)."
			return out, nil
		default:
			return out, invalidAction(action, s.Stage)
		}

	case models.DealStageClosed:
		return out, apperrors.ErrDealroomClosed

	default:
		return out, apperrors.ErrInvalidTransition(
			fmt.Sprintf("dealroom is not in an actionable stage (%s)", s.Stage))
	}
}

func readyAckMessage(role models.DealRole) string {
	if role == models.DealRoleBuyer {
		return "Buyer marked ready."
	}
	return "Seller marked ready."
}
