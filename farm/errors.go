package farm

import (
	"github.com/obsfarm/farmd/common/errors"
)

const (
	InvalidAmountError errors.Code = errors.CodeLedger + iota
	InsufficientBalanceError
	CliffNotElapsedError
	TransferFailedError
	UnauthorizedError
)

var (
	ErrInvalidAmount       = errors.NewBase(InvalidAmountError, "InvalidAmount")
	ErrInsufficientBalance = errors.NewBase(InsufficientBalanceError, "InsufficientBalance")
	ErrCliffNotElapsed     = errors.NewBase(CliffNotElapsedError, "CliffNotElapsed")
	ErrTransferFailed      = errors.NewBase(TransferFailedError, "TransferFailed")
	ErrUnauthorized        = errors.NewBase(UnauthorizedError, "Unauthorized")
)
