package affiliate

import "errors"

// Sentinel errors surfaced by the affiliate service. Handlers map these to
// HTTP status codes with errors.Is; anything else is an internal error.
var (
	ErrAlreadyAffiliate     = errors.New("user is already an affiliate")
	ErrDuplicateDocument    = errors.New("document number already registered")
	ErrInvalidParentCode    = errors.New("invalid parent affiliate code")
	ErrUnknownAffiliateCode = errors.New("affiliate code not found")
	ErrAffiliateNotFound    = errors.New("affiliate not found")
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrInsufficientBalance  = errors.New("insufficient available balance")
	ErrBelowMinimum         = errors.New("amount below minimum withdrawal")
	ErrInvalidState         = errors.New("withdrawal is not in a processable state")
)
