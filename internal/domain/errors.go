package domain

import "errors"

// Kind classifies ledger failures. Every failure is synchronous and non-retriable.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindState
	KindNotFound
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// KindedError is implemented by every error of the ledger taxonomy.
type KindedError interface {
	error
	Kind() Kind
}

// KindOf returns the Kind of the first taxonomy error in err's chain.
func KindOf(err error) Kind {
	var ke KindedError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	return KindUnknown
}

// LedgerError is a sentinel failure code.
type LedgerError struct {
	kind Kind
	code string
}

func newError(kind Kind, code string) *LedgerError {
	return &LedgerError{kind: kind, code: code}
}

func (e *LedgerError) Error() string {
	return e.code
}

func (e *LedgerError) Kind() Kind {
	return e.kind
}

var (
	// ErrInvalidPrice is returned when a price is zero or negative.
	ErrInvalidPrice = newError(KindValidation, "invalid price")

	// ErrFeeMismatch is returned when the attached fee differs from the listing fee.
	ErrFeeMismatch = newError(KindValidation, "fee mismatch")

	// ErrWrongPayment is returned when the attached amount differs from the item price.
	ErrWrongPayment = newError(KindValidation, "wrong payment")

	// ErrSelfPurchase is returned when the seller tries to buy their own item.
	ErrSelfPurchase = newError(KindValidation, "self purchase")

	ErrNotSeller     = newError(KindAuthorization, "not seller")
	ErrNotAssetOwner = newError(KindAuthorization, "not asset owner")

	ErrAlreadySold     = newError(KindState, "already sold")
	ErrAlreadyCanceled = newError(KindState, "already canceled")
	ErrSamePrice       = newError(KindState, "same price")

	// ErrAlreadyListed is returned when the asset already backs an active listing.
	ErrAlreadyListed = newError(KindState, "asset already listed")

	// ErrReentrant is returned when a collaborator calls back into the ledger
	// while one of its operations is in flight.
	ErrReentrant = newError(KindState, "reentrant ledger call")

	ErrItemNotFound = newError(KindNotFound, "item not found")

	// ErrTransferFailed matches every TransferError via errors.Is.
	ErrTransferFailed = newError(KindTransfer, "transfer failed")

	// ErrInsufficientFunds is returned by fund sources that cannot cover an amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountFrozen is returned by fund sources whose payee refuses deposits.
	ErrAccountFrozen = errors.New("account frozen")

	// ErrUnknownAsset is returned by registries that hold no title for a reference.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)

// TransferError reports a failed fund or custody leg of a settlement.
type TransferError struct {
	Leg string // e.g. "pay seller", "custody to buyer"
	Err error
}

func (e *TransferError) Error() string {
	return "transfer failed [" + e.Leg + "]: " + e.Err.Error()
}

func (e *TransferError) Kind() Kind {
	return KindTransfer
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}

// NewTransferError wraps err as a failed settlement leg.
func NewTransferError(leg string, err error) *TransferError {
	return &TransferError{Leg: leg, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
