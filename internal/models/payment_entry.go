package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment entry docstatus values, mirroring the usual draft/submitted split
// of accounting documents.
const (
	DocstatusDraft     = 0
	DocstatusSubmitted = 1
)

// PaymentEntry is the accounting record created for a received terminal
// payment. The unique index on ReferenceNo is the safety net for the
// at-most-one-entry-per-reference invariant: the existence check that runs
// before an insert is racy under concurrent webhook deliveries, and the
// index is what actually closes that gap.
type PaymentEntry struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	PaymentType     string     `gorm:"type:varchar(20);not null" json:"payment_type"` // Receive
	PostingDate     time.Time  `json:"posting_date"`
	Company         string     `gorm:"type:varchar(255);not null" json:"company"`
	ModeOfPayment   string     `gorm:"type:varchar(100);not null" json:"mode_of_payment"`
	PaidAmount      float64    `gorm:"type:decimal(20,2);not null" json:"paid_amount"`
	ReceivedAmount  float64    `gorm:"type:decimal(20,2);not null" json:"received_amount"`
	Currency        string     `gorm:"type:varchar(3)" json:"currency"`
	ReferenceNo     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference_no"`
	ReferenceDate   time.Time  `json:"reference_date"`
	PartyType       string     `gorm:"type:varchar(20)" json:"party_type"` // Customer
	Party           string     `gorm:"type:varchar(255)" json:"party"`
	PaidTo          string     `gorm:"type:varchar(255);not null" json:"paid_to"`
	PaidFrom        string     `gorm:"type:varchar(255)" json:"paid_from"`
	Remarks         string     `gorm:"type:text" json:"remarks"`
	Docstatus       int        `gorm:"default:0" json:"docstatus"`
	InvoiceNo       string     `gorm:"type:varchar(140);index" json:"invoice_no"`
	AllocatedAmount float64    `gorm:"type:decimal(20,2);default:0" json:"allocated_amount"`
	Metadata        JSON       `gorm:"type:json" json:"metadata"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BeforeCreate assigns an ID when one was not provided
func (e *PaymentEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
