package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

type (
	// TxType is the kind of a transaction.
	TxType string

	Transaction struct {
		ID        string          `json:"_id"`
		OwnerID   string          `json:"userId"`
		Amount    decimal.Decimal `json:"amount"`
		Type      TxType          `json:"type"`
		Category  string          `json:"category"`
		Date      time.Time       `json:"date"`
		Note      string          `json:"note"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}

	// TransactionFields are the owner-editable fields of a transaction.
	// A zero Date means "not provided".
	TransactionFields struct {
		Amount   decimal.Decimal
		Type     TxType
		Category string
		Date     time.Time
		Note     string
	}

	User struct {
		ID           string    `json:"_id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user does not exist")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrMissingAmount      = errors.New("amount is required")
	ErrEmptyCategory      = errors.New("empty category")
)

// IsValid reports whether t is one of the known transaction types.
func (t TxType) IsValid() bool {
	return t == Income || t == Expense
}

func (f TransactionFields) Validate() error {
	if !f.Type.IsValid() {
		return ErrInvalidType
	}
	if f.Amount.IsZero() {
		return ErrMissingAmount
	}
	if strings.TrimSpace(f.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// NormalizeAmount applies the sign convention for t: expenses are stored
// negative, income non-negative.
func NormalizeAmount(t TxType, amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Apply copies f onto tx, normalizing the amount sign. The date is only
// replaced when f carries one.
func (tx *Transaction) Apply(f TransactionFields) {
	tx.Type = f.Type
	tx.Amount = NormalizeAmount(f.Type, f.Amount)
	tx.Category = f.Category
	tx.Note = f.Note
	if !f.Date.IsZero() {
		tx.Date = f.Date
	}
}
