package models

import (
	"github.com/google/uuid"
)

type PaymentMethod struct {
	BaseUUIDModel
	UserID                  uuid.UUID `gorm:"type:uuid;not null;index:idx_payment_methods_user" json:"userId"`
	CustomerID              uuid.UUID `gorm:"type:uuid;not null"                                json:"customerId"`
	ProviderPaymentMethodID string    `gorm:"type:text;not null;uniqueIndex"                    json:"providerPaymentMethodId"`
	Brand                   string    `gorm:"type:text"                                         json:"brand"`
	Last4                   string    `gorm:"column:last4;type:text"                            json:"last4"`
	ExpMonth                int       `gorm:"type:int"                                          json:"expMonth"`
	ExpYear                 int       `gorm:"type:int"                                          json:"expYear"`
	IsDefault               bool      `gorm:"type:bool;default:false"                           json:"isDefault"`
}
