package model

import "github.com/shopspring/decimal"

type User struct {
	UserID   int64
	Username string
	Balance  decimal.Decimal
}

// Credentials is the stored authentication record, separate from User so the
// password hash never travels with balance data.
type Credentials struct {
	UserID       int64
	Username     string
	PasswordHash string
}
