package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invoice status values
const (
	InvoiceStatusUnpaid = "Unpaid"
	InvoiceStatusPaid   = "Paid"
)

// Paystack status values tracked on an invoice once a terminal charge
// has been initiated for it.
const (
	PaystackStatusPending = "Pending"
	PaystackStatusPaid    = "Paid"
)

// SalesInvoice is the receivable document a terminal payment settles.
// TerminalReference is set when a charge is pushed to the terminal; the
// reconciliation sweep picks up invoices that still have one but were
// never marked paid. Patient fields are optional and only populated for
// healthcare sites; they are explicit nullable columns rather than an
// open-ended attribute bag.
type SalesInvoice struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name              string    `gorm:"type:varchar(140);uniqueIndex;not null" json:"name"`
	Customer          string    `gorm:"type:varchar(255);not null" json:"customer"`
	Company           string    `gorm:"type:varchar(255);not null" json:"company"`
	GrandTotal        float64   `gorm:"type:decimal(20,2);not null" json:"grand_total"`
	Status            string    `gorm:"type:varchar(20);default:'Unpaid';index" json:"status"`
	TerminalReference string    `gorm:"type:varchar(100);index" json:"terminal_reference"`
	PaystackStatus    string    `gorm:"type:varchar(20)" json:"paystack_status"`
	Patient           *string   `gorm:"type:varchar(255)" json:"patient,omitempty"`
	PatientFirstName  *string   `gorm:"type:varchar(140)" json:"patient_first_name,omitempty"`
	PatientLastName   *string   `gorm:"type:varchar(140)" json:"patient_last_name,omitempty"`
	PatientEmail      *string   `gorm:"type:varchar(255)" json:"patient_email,omitempty"`
	PatientMobile     *string   `gorm:"type:varchar(30)" json:"patient_mobile,omitempty"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when one was not provided
func (i *SalesInvoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// PaymentComment is the audit note appended to an invoice when a payment
// entry against it is submitted.
type PaymentComment struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceName string    `gorm:"type:varchar(140);index;not null" json:"invoice_name"`
	CommentType string    `gorm:"type:varchar(20);default:'Info'" json:"comment_type"`
	Content     string    `gorm:"type:text" json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate assigns an ID when one was not provided
func (c *PaymentComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
