// Package main seeds a clinic ledger database: it applies migrations,
// provisions the five accounts, creates the default categories and,
// optionally, demo stock. With a JWT secret configured it prints a
// development token.
package main

import (
	"context"
	"fmt"
	"os"

	"clinicledger/internal/app"
	"clinicledger/internal/config"
	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/auth"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/stock"
	"clinicledger/internal/infrastructure/metrics"
	"clinicledger/pkg/logger"
)

type categorySeed struct {
	name      string
	direction ledger.EntryDirection
}

var defaultCategories = []categorySeed{
	{"Consultation", ledger.Income},
	{"Surgery", ledger.Income},
	{"Pharmacy Sale", ledger.Income},
	{"POS Sale", ledger.Income},
	{"Salaries", ledger.Expense},
	{"Rent", ledger.Expense},
	{"Utilities", ledger.Expense},
	{"Supplies", ledger.Expense},
}

var demoStock = []stock.Item{
	{Kind: stock.KindFrame, Name: "Titanium frame", SKU: "FR-TI-001", Quantity: 20, UnitPrice: types.FromMajor(1200)},
	{Kind: stock.KindFrame, Name: "Acetate frame", SKU: "FR-AC-001", Quantity: 35, UnitPrice: types.FromMajor(650)},
	{Kind: stock.KindLens, Name: "Single vision lens", SKU: "LN-SV-150", Quantity: 100, UnitPrice: types.FromMajor(300)},
	{Kind: stock.KindLens, Name: "Progressive lens", SKU: "LN-PR-200", Quantity: 40, UnitPrice: types.FromMajor(1500)},
	{Kind: stock.KindCompleteGlasses, Name: "Reading glasses +1.5", SKU: "CG-RD-150", Quantity: 15, UnitPrice: types.FromMajor(450)},
	{Kind: stock.KindMedicine, Name: "Eye drops 10ml", SKU: "MD-ED-010", Quantity: 200, UnitPrice: types.FromMajor(85)},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	ctx := logger.WithLogger(context.Background(), log)

	db, err := app.OpenDatabase(ctx, cfg, metrics.New(), true)
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	defer db.Close()
	log.Info("connected to database")

	svc, err := app.NewPostgres(ctx, db.TxManager, cfg.SaleConfig(), nil)
	if err != nil {
		log.Fatalw("failed to provision accounts", "error", err)
	}

	if err := seedCategories(ctx, svc, log); err != nil {
		log.Fatalw("failed to seed categories", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedStock(ctx, svc, log); err != nil {
			log.Fatalw("failed to seed demo stock", "error", err)
		}
	}

	if cfg.JWT.Secret != "" {
		printDevToken(cfg, log)
	}

	log.Info("seeding completed successfully")
}

func seedCategories(ctx context.Context, svc *app.Services, log *logger.Logger) error {
	for _, c := range defaultCategories {
		cat, err := svc.Categories.Ensure(ctx, c.name, c.direction)
		if err != nil {
			return fmt.Errorf("category %q: %w", c.name, err)
		}
		log.Debugw("category ready", "name", cat.Name, "direction", cat.Direction)
	}
	log.Infow("categories seeded", "count", len(defaultCategories))
	return nil
}

func seedStock(ctx context.Context, svc *app.Services, log *logger.Logger) error {
	created := 0
	for i := range demoStock {
		item := demoStock[i]
		err := svc.Stock.Create(ctx, &item)
		if apperror.Kind(err) == apperror.KindValidation {
			log.Infow("stock item already present", "sku", item.SKU)
			continue
		}
		if err != nil {
			return fmt.Errorf("stock item %s: %w", item.SKU, err)
		}
		created++
	}
	log.Infow("demo stock seeded", "created", created)
	return nil
}

func printDevToken(cfg *config.Config, log *logger.Logger) {
	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	if cfg.JWT.Issuer != "" {
		jwtCfg.Issuer = cfg.JWT.Issuer
	}
	userID := os.Getenv("SEED_USER_ID")
	if userID == "" {
		userID = "admin"
	}

	token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(userID, "Administrator", []string{"admin"})
	if err != nil {
		log.Warnw("failed to mint development token", "error", err)
		return
	}
	log.Infow("development token issued", "user_id", userID, "expires_at", expiresAt)
	fmt.Println(token)
}
