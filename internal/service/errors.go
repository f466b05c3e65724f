package service

import "errors"

var (
	ErrNotFound           = errors.New("error not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares to sell")
	ErrPriceUnavailable   = errors.New("price unavailable")
)
