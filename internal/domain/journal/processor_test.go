package journal_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicledger/internal/app"
	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/fund"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/sale"
	"clinicledger/internal/domain/stock"
	"clinicledger/internal/infrastructure/storage/memory"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type recordingAudit struct {
	actions []domain.AuditAction
}

func (r *recordingAudit) Record(_ context.Context, _ string, _ id.ID, action domain.AuditAction, _, _ any) error {
	r.actions = append(r.actions, action)
	return nil
}

func setup(t *testing.T) (*app.Services, *memory.Store, *recordingAudit) {
	t.Helper()
	audit := &recordingAudit{}
	svc, store, err := app.NewInMemory(context.Background(), sale.DefaultConfig(), nil, audit)
	require.NoError(t, err)
	return svc, store, audit
}

func fundIn(t *testing.T, svc *app.Services, account ledger.AccountKind, amount types.MinorUnits) {
	t.Helper()
	_, err := svc.Funds.FundIn(context.Background(), fund.TransferInput{
		Account:      account,
		InvestorName: "Dr. Rahman",
		Amount:       amount,
		Date:         day,
	})
	require.NoError(t, err)
}

func balance(t *testing.T, svc *app.Services, account ledger.AccountKind) types.MinorUnits {
	t.Helper()
	b, err := svc.Ledger.Balance(context.Background(), account)
	require.NoError(t, err)
	return b
}

func assertReplays(t *testing.T, svc *app.Services) {
	t.Helper()
	for _, kind := range ledger.AllAccounts {
		rec, err := svc.Ledger.Reconcile(context.Background(), kind)
		require.NoError(t, err)
		assert.True(t, rec.Balanced(), "account %s drift %s", kind, rec.Drift)
	}
}

func TestPost_ExpenseAndDeleteRestoresBalance(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	fundIn(t, svc, ledger.Hospital, types.FromMajor(10000))

	res, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Hospital,
		Direction: ledger.Expense,
		Amount:    types.FromMajor(500),
		Category:  "Electricity",
		Date:      day,
	})
	require.NoError(t, err)
	assert.Equal(t, types.FromMajor(9500), res.AccountBalance)
	assert.Regexp(t, regexp.MustCompile(`^HOS-TX-\d{4}-00001$`), res.Entry.TransactionNo)
	assert.Equal(t, "system", res.Entry.CreatedBy)
	assert.Equal(t, day, res.Entry.Date)
	assertReplays(t, svc)

	del, err := svc.Journal.Delete(ctx, res.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FromMajor(10000), del.AccountBalance)
	assert.Equal(t, types.FromMajor(10000), balance(t, svc, ledger.Hospital))

	_, err = svc.Journal.Get(ctx, res.Entry.ID)
	assert.True(t, apperror.IsNotFound(err))
	assertReplays(t, svc)
}

func TestPost_Validation(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   journal.PostInput
	}{
		{"zero amount", journal.PostInput{Account: ledger.Hospital, Direction: ledger.Income, Category: "Consultation", Date: day}},
		{"negative amount", journal.PostInput{Account: ledger.Hospital, Direction: ledger.Income, Amount: -1, Category: "Consultation", Date: day}},
		{"unknown account", journal.PostInput{Account: "pharmacy", Direction: ledger.Income, Amount: 1, Category: "Consultation", Date: day}},
		{"unknown direction", journal.PostInput{Account: ledger.Hospital, Direction: "refund", Amount: 1, Category: "Consultation", Date: day}},
		{"missing category", journal.PostInput{Account: ledger.Hospital, Direction: ledger.Income, Amount: 1, Category: "  ", Date: day}},
		{"missing date", journal.PostInput{Account: ledger.Hospital, Direction: ledger.Income, Amount: 1, Category: "Consultation"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Journal.Post(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
		})
	}
	assert.True(t, balance(t, svc, ledger.Hospital).IsZero())
}

func TestPost_ExpenseOverBalanceFails(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	fundIn(t, svc, ledger.Medicine, types.FromMajor(300))

	_, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Medicine,
		Direction: ledger.Expense,
		Amount:    types.FromMajor(301),
		Category:  "Supplies",
		Date:      day,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientBalance, apperror.Kind(err))

	list, err := svc.Journal.List(ctx, journal.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.Equal(t, types.FromMajor(300), balance(t, svc, ledger.Medicine))

	// the rolled-back number is reused
	res, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Medicine,
		Direction: ledger.Expense,
		Amount:    types.FromMajor(100),
		Category:  "Supplies",
		Date:      day,
	})
	require.NoError(t, err)
	assert.Regexp(t, `-00001$`, res.Entry.TransactionNo)
}

func TestEdit_DirectionFlipAppliesDoubleDelta(t *testing.T) {
	svc, _, audit := setup(t)
	ctx := context.Background()
	fundIn(t, svc, ledger.Hospital, types.FromMajor(1000))

	res, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Hospital,
		Direction: ledger.Income,
		Amount:    types.FromMajor(500),
		Category:  "Consultation",
		Date:      day,
	})
	require.NoError(t, err)
	require.Equal(t, types.FromMajor(1500), res.AccountBalance)

	expense := ledger.Expense
	category := "Maintenance"
	edited, err := svc.Journal.Edit(ctx, res.Entry.ID, journal.EditInput{
		Direction: &expense,
		Category:  &category,
	})
	require.NoError(t, err)
	assert.Equal(t, types.FromMajor(500), edited.AccountBalance)
	assert.Equal(t, ledger.Expense, edited.Entry.Direction)
	assert.Equal(t, res.Entry.TransactionNo, edited.Entry.TransactionNo)
	assert.Equal(t, 2, edited.Entry.Version)
	assert.Equal(t, []domain.AuditAction{domain.AuditActionUpdate}, audit.actions)
	assertReplays(t, svc)
}

func TestEdit_MoveBetweenAccounts(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	res, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Operation,
		Direction: ledger.Income,
		Amount:    types.FromMajor(2000),
		Category:  "Surgery",
		Date:      day,
	})
	require.NoError(t, err)

	hospital := ledger.Hospital
	amount := types.FromMajor(1800)
	edited, err := svc.Journal.Edit(ctx, res.Entry.ID, journal.EditInput{Account: &hospital, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, types.FromMajor(1800), edited.AccountBalance)
	assert.True(t, balance(t, svc, ledger.Operation).IsZero())
	assert.Equal(t, types.FromMajor(1800), balance(t, svc, ledger.Hospital))
	assertReplays(t, svc)
}

func TestEdit_WouldOverdrawFailsWithoutChanges(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	res, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Optics,
		Direction: ledger.Income,
		Amount:    types.FromMajor(100),
		Category:  "Eye test",
		Date:      day,
	})
	require.NoError(t, err)

	expense := ledger.Expense
	_, err = svc.Journal.Edit(ctx, res.Entry.ID, journal.EditInput{Direction: &expense})
	assert.Equal(t, apperror.KindInsufficientBalance, apperror.Kind(err))

	got, err := svc.Journal.Get(ctx, res.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Income, got.Direction)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, types.FromMajor(100), balance(t, svc, ledger.Optics))
}

func TestEditDelete_NotFound(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	amount := types.FromMajor(1)
	_, err := svc.Journal.Edit(ctx, id.New(), journal.EditInput{Amount: &amount})
	assert.Equal(t, apperror.KindNotFound, apperror.Kind(err))

	_, err = svc.Journal.Delete(ctx, id.New())
	assert.Equal(t, apperror.KindNotFound, apperror.Kind(err))
}

func TestRollup_PostEditDeleteMoveBothAccounts(t *testing.T) {
	svc, _, audit := setup(t)
	ctx := context.Background()

	res, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:     ledger.Optics,
		Direction:   ledger.Income,
		Amount:      types.FromMajor(300),
		Category:    "Frames",
		Date:        day,
		Description: "walk-in",
		Rollup:      true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Rollup)
	require.NotNil(t, res.MainBalance)
	assert.Equal(t, &res.Rollup.ID, res.Entry.LinkedMainVoucherID)
	assert.Equal(t, ledger.Main, res.Rollup.Account)
	assert.Regexp(t, `^MAIN-TX-`, res.Rollup.TransactionNo)
	assert.Equal(t, types.FromMajor(300), res.AccountBalance)
	assert.Equal(t, types.FromMajor(300), *res.MainBalance)

	// the mirrored entry is corrected through its source only
	_, err = svc.Journal.Delete(ctx, res.Rollup.ID)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	amount := types.FromMajor(400)
	edited, err := svc.Journal.Edit(ctx, res.Entry.ID, journal.EditInput{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, types.FromMajor(400), edited.AccountBalance)
	assert.Equal(t, types.FromMajor(400), balance(t, svc, ledger.Main))
	assert.Equal(t, types.FromMajor(400), edited.Rollup.Amount)

	main := ledger.Main
	_, err = svc.Journal.Edit(ctx, res.Entry.ID, journal.EditInput{Account: &main})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	audit.actions = nil
	_, err = svc.Journal.Delete(ctx, res.Entry.ID)
	require.NoError(t, err)
	assert.True(t, balance(t, svc, ledger.Optics).IsZero())
	assert.True(t, balance(t, svc, ledger.Main).IsZero())
	assert.Equal(t, []domain.AuditAction{domain.AuditActionDelete, domain.AuditActionDelete}, audit.actions)

	_, err = svc.Journal.Get(ctx, res.Rollup.ID)
	assert.True(t, apperror.IsNotFound(err))
	assertReplays(t, svc)
}

func TestRollup_DeleteFailsAtomicallyWhenMainWouldGoNegative(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	res, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Optics,
		Direction: ledger.Income,
		Amount:    types.FromMajor(300),
		Category:  "Frames",
		Date:      day,
		Rollup:    true,
	})
	require.NoError(t, err)

	// main spends the rolled-up money
	_, err = svc.Funds.FundOut(ctx, fund.TransferInput{
		Account:      ledger.Main,
		InvestorName: "Dr. Rahman",
		Amount:       types.FromMajor(250),
		Date:         day,
	})
	require.NoError(t, err)

	_, err = svc.Journal.Delete(ctx, res.Entry.ID)
	assert.Equal(t, apperror.KindInsufficientBalance, apperror.Kind(err))

	assert.Equal(t, types.FromMajor(300), balance(t, svc, ledger.Optics))
	assert.Equal(t, types.FromMajor(50), balance(t, svc, ledger.Main))
	_, err = svc.Journal.Get(ctx, res.Entry.ID)
	assert.NoError(t, err)
}

func TestDeleteAndRepost_RestoresBalance(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	fundIn(t, svc, ledger.Hospital, types.MustMinorUnits("7777.77"))

	in := journal.PostInput{
		Account:   ledger.Hospital,
		Direction: ledger.Expense,
		Amount:    types.MustMinorUnits("1234.56"),
		Category:  "Salaries",
		Date:      day,
	}
	first, err := svc.Journal.Post(ctx, in)
	require.NoError(t, err)
	before := first.AccountBalance

	_, err = svc.Journal.Delete(ctx, first.Entry.ID)
	require.NoError(t, err)
	again, err := svc.Journal.Post(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, before, again.AccountBalance)
	assert.NotEqual(t, first.Entry.TransactionNo, again.Entry.TransactionNo)
	assertReplays(t, svc)
}

func TestCategories_ResolveByIDAndName(t *testing.T) {
	svc, store, _ := setup(t)
	ctx := context.Background()

	electricity, err := svc.Categories.Create(ctx, "Electricity", ledger.Expense)
	require.NoError(t, err)
	consultation, err := svc.Categories.Create(ctx, "Consultation", ledger.Income)
	require.NoError(t, err)

	_, err = svc.Categories.Create(ctx, " Electricity ", ledger.Expense)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	fundIn(t, svc, ledger.Hospital, types.FromMajor(100))

	res, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Hospital,
		Direction: ledger.Expense,
		Amount:    types.FromMajor(10),
		Category:  "electricity",
		Date:      day,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Entry.CategoryID)
	assert.Equal(t, electricity.ID, *res.Entry.CategoryID)

	res, err = svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Hospital,
		Direction: ledger.Expense,
		Amount:    types.FromMajor(10),
		Category:  "Generator fuel",
		Date:      day,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Entry.CategoryID)
	assert.Equal(t, "Generator fuel", res.Entry.Category)

	_, err = svc.Journal.Post(ctx, journal.PostInput{
		Account:    ledger.Hospital,
		Direction:  ledger.Expense,
		Amount:     types.FromMajor(10),
		CategoryID: &consultation.ID,
		Date:       day,
	})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	store.Categories().SetActive(electricity.ID, false)
	_, err = svc.Journal.Post(ctx, journal.PostInput{
		Account:    ledger.Hospital,
		Direction:  ledger.Expense,
		Amount:     types.FromMajor(10),
		CategoryID: &electricity.ID,
		Date:       day,
	})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
}

func TestSaleEntries_CannotBeCorrectedThroughJournal(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	item := &stock.Item{Kind: stock.KindMedicine, Name: "Paracetamol", Quantity: 10, UnitPrice: types.FromMajor(5)}
	require.NoError(t, svc.Stock.Create(ctx, item))

	created, err := svc.Sales.Create(ctx, sale.CreateInput{
		Account:        ledger.Medicine,
		Items:          []stock.Line{{ItemID: item.ID, Quantity: 2}},
		AdvancePayment: types.FromMajor(10),
		PaymentMethod:  sale.MethodCash,
	})
	require.NoError(t, err)
	require.Len(t, created.Sale.Payments, 1)
	entryID := created.Sale.Payments[0].JournalEntryID

	amount := types.FromMajor(1)
	_, err = svc.Journal.Edit(ctx, entryID, journal.EditInput{Amount: &amount})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
	_, err = svc.Journal.Delete(ctx, entryID)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
	assert.Equal(t, types.FromMajor(10), balance(t, svc, ledger.Medicine))
}

func TestList_FiltersAndPaginates(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Journal.Post(ctx, journal.PostInput{
			Account:   ledger.Hospital,
			Direction: ledger.Income,
			Amount:    types.FromMajor(int64(100 * (i + 1))),
			Category:  "Consultation",
			Date:      day.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}
	_, err := svc.Journal.Post(ctx, journal.PostInput{
		Account:   ledger.Medicine,
		Direction: ledger.Income,
		Amount:    types.FromMajor(50),
		Category:  "Counter sale",
		Date:      day,
	})
	require.NoError(t, err)

	hospital := ledger.Hospital
	list, err := svc.Journal.List(ctx, journal.Filter{
		ListFilter: domain.ListFilter{Limit: 2},
		Account:    &hospital,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.TotalCount)
	require.Len(t, list.Items, 2)
	assert.Equal(t, day.AddDate(0, 0, 2), list.Items[0].Date)

	from := day.AddDate(0, 0, 1)
	list, err = svc.Journal.List(ctx, journal.Filter{
		ListFilter: domain.ListFilter{DateFrom: &from},
		Account:    &hospital,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.TotalCount)
}
