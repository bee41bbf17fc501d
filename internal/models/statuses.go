package models

type DealStage string
type DealRole string
type InviteStatus string
type ContactRequestStatus string
type VerificationStatus string

const (
	// Ordered lifecycle sequence. Transitions only move forward,
	// one step at a time.
	DealStagePending DealStage = "pending"
	DealStage0       DealStage = "stage_0"
	DealStage1       DealStage = "stage_1"
	DealStage2       DealStage = "stage_2"
	DealStage3       DealStage = "stage_3"
	DealStageClosed  DealStage = "closed"

	DealRoleBuyer  DealRole = "buyer"
	DealRoleSeller DealRole = "seller"

	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRejected InviteStatus = "rejected"

	ContactRequestPending  ContactRequestStatus = "pending"
	ContactRequestAccepted ContactRequestStatus = "accepted"
	ContactRequestRejected ContactRequestStatus = "rejected"

	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFlagged  VerificationStatus = "flagged"
)

// StageOrder gives the position of a stage in the lifecycle sequence.
// Unknown stages map to -1.
func StageOrder(s DealStage) int {
	switch s {
	case DealStagePending:
		return 0
	case DealStage0:
		return 1
	case DealStage1:
		return 2
	case DealStage2:
		return 3
	case DealStage3:
		return 4
	case DealStageClosed:
		return 5
	default:
		return -1
	}
}
