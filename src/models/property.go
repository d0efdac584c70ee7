package models

import "hbs/src/types"

type Property struct {
	ID             uint                 `gorm:"primarykey" json:"id"`
	ProviderID     uint                 `json:"provider_id,omitempty"`
	Title          string               `json:"title,omitempty"`
	Slug           string               `gorm:"index" json:"slug,omitempty"`
	Location       string               `json:"location,omitempty"`
	Currency       string               `json:"currency,omitempty"`
	NightlyPrice   int64                `json:"nightly_price,omitempty"`
	Status         types.PropertyStatus `gorm:"default:'draft'" json:"status,omitempty"`
	InstantBook    bool                 `json:"instant_book"`
	BlockOnPending bool                 `json:"block_on_pending"`
	Source         types.PropertySource `gorm:"default:'internal'" json:"source,omitempty"`
	ExternalID     *string              `json:"external_id,omitempty"`

	Provider Account `gorm:"foreignKey:provider_id" json:"provider,omitempty"`

	types.Timestamps
}
