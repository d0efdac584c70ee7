package models

import "hbs/src/types"

// Account is a guest or host. Deactivation is a status transition, not a
// row deletion; every point of use checks Status.
type Account struct {
	ID       uint                `gorm:"primarykey" json:"id"`
	Name     string              `json:"name,omitempty"`
	Email    string              `gorm:"uniqueIndex" json:"email,omitempty"`
	Role     string              `gorm:"default:'guest'" json:"role,omitempty"`
	Password string              `json:"-"`
	Status   types.AccountStatus `gorm:"default:'active'" json:"status,omitempty"`

	// RecipientCode is the gateway transfer recipient used for payouts.
	RecipientCode *string `json:"recipient_code,omitempty"`

	Wallet *Wallet `gorm:"foreignKey:account_id" json:"wallet,omitempty"`

	types.Timestamps
}
