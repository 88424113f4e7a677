package models

import dErrors "matricula/pkg/domain-errors"

// SlotStatus is the lifecycle state of one document slot.
//
//	Empty -> Uploaded -> UnderReview -> Verified | Rejected -> RegistrarConfirmed
//
// Deletion returns any state to Empty. Re-uploading from a reviewed state
// returns the slot to Uploaded.
type SlotStatus string

const (
	StatusEmpty              SlotStatus = "empty"
	StatusUploaded           SlotStatus = "uploaded"
	StatusUnderReview        SlotStatus = "under_review"
	StatusVerified           SlotStatus = "verified"
	StatusRejected           SlotStatus = "rejected"
	StatusRegistrarConfirmed SlotStatus = "registrar_confirmed"
)

var validStatuses = map[SlotStatus]bool{
	StatusEmpty:              true,
	StatusUploaded:           true,
	StatusUnderReview:        true,
	StatusVerified:           true,
	StatusRejected:           true,
	StatusRegistrarConfirmed: true,
}

// transitions is the single source of truth for allowed per-slot moves.
// Bulk registrar transitions bypass this table on purpose: they apply to
// every slot of an applicant inside one transaction (see lifecycle.SubmitAll).
var transitions = map[SlotStatus]map[SlotStatus]bool{
	StatusEmpty: {
		StatusUploaded: true,
	},
	StatusUploaded: {
		StatusUploaded:    true, // replacement upload
		StatusUnderReview: true,
		StatusVerified:    true,
		StatusRejected:    true,
	},
	StatusUnderReview: {
		StatusVerified: true,
		StatusRejected: true,
	},
	StatusVerified: {
		StatusUploaded: true, // re-upload restarts review
	},
	StatusRejected: {
		StatusUploaded: true,
	},
	StatusRegistrarConfirmed: {
		StatusUploaded: true, // unsubmit / re-upload
	},
}

// ParseSlotStatus constructs a SlotStatus from external input.
func ParseSlotStatus(s string) (SlotStatus, error) {
	st := SlotStatus(s)
	if !validStatuses[st] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown slot status %q", s)
	}
	return st, nil
}

// IsValid checks the status against the supported set.
func (s SlotStatus) IsValid() bool { return validStatuses[s] }

func (s SlotStatus) String() string { return string(s) }

// IsReviewVerdict reports whether the status is a terminal evaluator verdict.
func (s SlotStatus) IsReviewVerdict() bool {
	return s == StatusVerified || s == StatusRejected
}

// CanTransition reports whether a per-slot move from s to next is allowed.
// Every state may return to Empty via explicit deletion.
func (s SlotStatus) CanTransition(next SlotStatus) bool {
	if next == StatusEmpty {
		return true
	}
	return transitions[s][next]
}
