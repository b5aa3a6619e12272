// Package app wires repositories and infrastructure into the ledger services.
package app

import (
	"context"
	"fmt"

	"clinicledger/internal/core/numerator"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/fund"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/posting"
	"clinicledger/internal/domain/sale"
	"clinicledger/internal/domain/stock"
	infranumerator "clinicledger/internal/infrastructure/numerator"
	"clinicledger/internal/infrastructure/storage/memory"
	"clinicledger/internal/infrastructure/storage/postgres"
	"clinicledger/internal/infrastructure/storage/postgres/ledger_repo"
	"clinicledger/internal/infrastructure/storage/postgres/sale_repo"
)

// Repositories groups the storage ports.
type Repositories struct {
	Accounts   ledger.Repository
	Journal    journal.Repository
	Categories journal.CategoryRepository
	Funds      fund.Repository
	Stock      stock.Repository
	Sales      sale.Repository
}

// Deps holds everything the services need.
type Deps struct {
	Repos      Repositories
	TxManager  tx.Manager
	Numerator  numerator.Generator
	Cache      ledger.BalanceCache
	Events     domain.EventPublisher
	Audit      domain.AuditRecorder
	SaleConfig sale.Config
}

// Services are the engine operations exposed to callers.
type Services struct {
	Ledger     *ledger.Service
	Posting    *posting.Engine
	Journal    *journal.Processor
	Categories *journal.Categories
	Funds      *fund.Ledger
	Stock      *stock.Guard
	Sales      *sale.Engine
	Payments   *sale.PaymentRecorder
}

// NewServices builds the service graph.
func NewServices(d Deps) *Services {
	ledgerService := ledger.NewService(d.Repos.Accounts, d.TxManager, d.Cache)
	postingEngine := posting.NewEngine(ledgerService, d.TxManager)
	journalProcessor := journal.NewProcessor(
		d.Repos.Journal, d.Repos.Categories, postingEngine, d.Numerator, d.TxManager, d.Events, d.Audit,
	)
	stockGuard := stock.NewGuard(d.Repos.Stock, d.TxManager)

	return &Services{
		Ledger:     ledgerService,
		Posting:    postingEngine,
		Journal:    journalProcessor,
		Categories: journal.NewCategories(d.Repos.Categories, d.TxManager),
		Funds:      fund.NewLedger(d.Repos.Funds, postingEngine, d.Numerator, d.TxManager, d.Events, d.Audit),
		Stock:      stockGuard,
		Sales: sale.NewEngine(
			d.Repos.Sales, stockGuard, journalProcessor, postingEngine, ledgerService,
			d.Numerator, d.TxManager, d.Events, d.SaleConfig,
		),
		Payments: sale.NewPaymentRecorder(
			d.Repos.Sales, journalProcessor, postingEngine, d.TxManager, d.Events, d.SaleConfig,
		),
	}
}

// MemoryRepositories exposes the in-memory store as repositories.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Accounts:   store.Accounts(),
		Journal:    store.Journal(),
		Categories: store.Categories(),
		Funds:      store.Funds(),
		Stock:      store.Stock(),
		Sales:      store.Sales(),
	}
}

// NewInMemory builds provisioned services on a fresh in-memory store.
func NewInMemory(ctx context.Context, cfg sale.Config, events domain.EventPublisher, audit domain.AuditRecorder) (*Services, *memory.Store, error) {
	store := memory.New()
	svc := NewServices(Deps{
		Repos:      MemoryRepositories(store),
		TxManager:  store,
		Numerator:  store.Numerator(),
		Events:     events,
		Audit:      audit,
		SaleConfig: cfg,
	})
	if err := svc.Ledger.Provision(ctx); err != nil {
		return nil, nil, fmt.Errorf("provision accounts: %w", err)
	}
	return svc, store, nil
}

// PostgresRepositories builds the PostgreSQL repositories on txm.
func PostgresRepositories(txm *postgres.TxManager) Repositories {
	return Repositories{
		Accounts:   ledger_repo.NewAccountRepo(txm),
		Journal:    ledger_repo.NewJournalRepo(txm),
		Categories: ledger_repo.NewCategoryRepo(txm),
		Funds:      ledger_repo.NewFundRepo(txm),
		Stock:      sale_repo.NewStockRepo(txm),
		Sales:      sale_repo.NewSaleRepo(txm),
	}
}

// PostgresNumerator returns a gap-free number generator that runs on the
// caller's transaction.
func PostgresNumerator(txm *postgres.TxManager) *infranumerator.Service {
	return infranumerator.NewWithSource(func(ctx context.Context) infranumerator.Querier {
		return txm.GetQuerier(ctx)
	})
}

// NewPostgres builds provisioned services backed by PostgreSQL. Events and
// audit default to the transactional outbox and audit table.
func NewPostgres(ctx context.Context, txm *postgres.TxManager, cfg sale.Config, cache ledger.BalanceCache) (*Services, error) {
	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, err
	}
	svc := NewServices(Deps{
		Repos:      PostgresRepositories(txm),
		TxManager:  txm,
		Numerator:  PostgresNumerator(txm),
		Cache:      cache,
		Events:     postgres.NewOutboxPublisher(txm),
		Audit:      audit,
		SaleConfig: cfg,
	})
	if err := svc.Ledger.Provision(ctx); err != nil {
		return nil, fmt.Errorf("provision accounts: %w", err)
	}
	return svc, nil
}
