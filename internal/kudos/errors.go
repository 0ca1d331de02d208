package kudos

import "errors"

// Precondition errors, returned before any network call
var (
	// ErrNotConnected - no wallet session, or the session cannot sign
	ErrNotConnected = errors.New("wallet not connected")
	// ErrInvalidInput - recipient, amount or message missing, or recipient malformed
	ErrInvalidInput = errors.New("missing required parameters")
	// ErrSelfSend - recipient is the connected address
	ErrSelfSend = errors.New("cannot send kudos to yourself")
	// ErrAmountParse - amount is not a positive decimal with at most 18 places
	ErrAmountParse = errors.New("invalid amount")
)

// Transaction errors, returned after a leg was attempted
var (
	// ErrApprovalFailed - the approval transaction was rejected, failed or reverted
	ErrApprovalFailed = errors.New("token approval failed")
	// ErrSendFailed - the sendKudos transaction was rejected or failed
	ErrSendFailed = errors.New("failed to send kudos")
)
