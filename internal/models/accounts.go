package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModeOfPayment is the payment-mode resource a payment entry is booked
// under. The canonical "Paystack Terminal" mode is auto-created by the
// ledger writer when missing.
type ModeOfPayment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Type      string    `gorm:"type:varchar(20)" json:"type"` // Bank
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when one was not provided
func (m *ModeOfPayment) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ModeOfPaymentAccount maps a payment mode to its destination account for
// one company. It is the preferred source for a payment entry's paid-to
// account, ahead of the company default bank account.
type ModeOfPaymentAccount struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ModeOfPayment  string    `gorm:"type:varchar(100);uniqueIndex:idx_mop_company;not null" json:"mode_of_payment"`
	Company        string    `gorm:"type:varchar(255);uniqueIndex:idx_mop_company;not null" json:"company"`
	DefaultAccount string    `gorm:"type:varchar(255);not null" json:"default_account"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when one was not provided
func (m *ModeOfPaymentAccount) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Company is the owning organizational unit of a payment entry
type Company struct {
	ID                       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name                     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	DefaultCurrency          string    `gorm:"type:varchar(3);not null" json:"default_currency"`
	DefaultBankAccount       string    `gorm:"type:varchar(255)" json:"default_bank_account"`
	DefaultReceivableAccount string    `gorm:"type:varchar(255)" json:"default_receivable_account"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when one was not provided
func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// WalkInCustomer is the generic payer assigned to entries that have no
// linked invoice to derive a party from.
const WalkInCustomer = "Walk-in Customer"

// Customer is the payer behind an invoice. PaystackCustomerCode is
// persisted after the first customer create against the Paystack API so
// later terminal charges reuse it.
type Customer struct {
	ID                   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name                 string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	CustomerName         string    `gorm:"type:varchar(255)" json:"customer_name"`
	EmailID              string    `gorm:"type:varchar(255)" json:"email_id"`
	MobileNo             string    `gorm:"type:varchar(30)" json:"mobile_no"`
	PaystackCustomerCode string    `gorm:"type:varchar(100)" json:"paystack_customer_code"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when one was not provided
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
