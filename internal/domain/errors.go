package domain

import "errors"

var (
	// ErrTokenNotFound is returned when an operation references a token id
	// that is not present in the ledger.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenAlreadyExists is returned when minting a token id that is
	// already present.
	ErrTokenAlreadyExists = errors.New("token already exists")

	// ErrUnauthorized is returned when the caller is neither the owner nor
	// an authorized delegate for the attempted operation.
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrApprovalMismatch is returned when the caller holds an approval but
	// its id does not match the required approval id.
	ErrApprovalMismatch = errors.New("approval id mismatch")

	// ErrInsufficientPayment is returned when the attached payment does not
	// cover the storage cost of an operation.
	ErrInsufficientPayment = errors.New("insufficient payment for storage")

	// ErrTooManyRecipients is returned when a royalty configuration or a
	// payout request exceeds the recipient limit.
	ErrTooManyRecipients = errors.New("too many payout recipients")

	// ErrSelfTransfer is returned when a transfer names the current owner
	// as the receiver.
	ErrSelfTransfer = errors.New("receiver already owns the token")
)
