package domain

import (
	"context"

	"clinicledger/internal/core/id"
)

// Event is a domain event written to the outbox inside the posting transaction.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Event types.
const (
	EventJournalEntryPosted  = "JournalEntryPosted"
	EventJournalEntryEdited  = "JournalEntryEdited"
	EventJournalEntryDeleted = "JournalEntryDeleted"
	EventFundTransferPosted  = "FundTransferPosted"
	EventFundTransferDeleted = "FundTransferDeleted"
	EventSaleCreated         = "SaleCreated"
	EventPaymentRecorded     = "PaymentRecorded"
	EventSaleStatusChanged   = "SaleStatusChanged"
)

// EventPublisher records events atomically with the state change.
// Publish must be called inside a transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// AuditAction represents the type of audited operation.
type AuditAction string

const (
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditRecorder stores before/after snapshots of corrected ledger rows.
type AuditRecorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action AuditAction, before, after any) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NopAuditRecorder discards audit records.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(context.Context, string, id.ID, AuditAction, any, any) error {
	return nil
}
