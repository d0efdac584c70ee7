package models

import (
	"hbs/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallet holds one account's internal cash balance in minor units.
// Balance mutations always pair with exactly one WalletTransaction row in
// the same database transaction.
type Wallet struct {
	ID        uint               `gorm:"primarykey" json:"id"`
	AccountID uint               `gorm:"uniqueIndex" json:"account_id,omitempty"`
	Balance   int64              `json:"balance"`
	Currency  string             `json:"currency,omitempty"`
	Status    types.WalletStatus `gorm:"default:'active'" json:"status,omitempty"`

	Account      Account             `json:"-"`
	Transactions []WalletTransaction `json:"transactions,omitempty"`

	types.Timestamps
}

// WalletTransaction is an append-only ledger entry. Rows are never updated
// after creation; the newest entry's BalanceAfter must equal the wallet's
// stored balance.
type WalletTransaction struct {
	ID            uuid.UUID                   `gorm:"primarykey;type:uuid" json:"id"`
	WalletID      uint                        `gorm:"index" json:"wallet_id,omitempty"`
	Type          types.WalletTransactionType `json:"type,omitempty"`
	Amount        int64                       `json:"amount,omitempty"`
	BalanceBefore int64                       `json:"balance_before"`
	BalanceAfter  int64                       `json:"balance_after"`
	Reference     string                      `gorm:"index" json:"reference,omitempty"`
	Reason        string                      `json:"reason,omitempty"`
	BookingID     *uint                       `json:"booking_id,omitempty"`
	PaymentID     *uuid.UUID                  `gorm:"type:uuid" json:"payment_id,omitempty"`

	Wallet Wallet `json:"-"`

	types.Timestamps
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
