package fund_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicledger/internal/app"
	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/fund"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/sale"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) *app.Services {
	t.Helper()
	svc, _, err := app.NewInMemory(context.Background(), sale.DefaultConfig(), nil, nil)
	require.NoError(t, err)
	return svc
}

func input(account ledger.AccountKind, amount types.MinorUnits) fund.TransferInput {
	return fund.TransferInput{
		Account:      account,
		InvestorName: "Karim Uddin",
		Amount:       amount,
		Date:         day,
		Description:  "capital",
	}
}

func TestFundIn_AssignsVoucherAndCredits(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	first, err := svc.Funds.FundIn(ctx, input(ledger.Optics, types.FromMajor(5000)))
	require.NoError(t, err)
	second, err := svc.Funds.FundIn(ctx, input(ledger.Optics, types.FromMajor(2500)))
	require.NoError(t, err)

	assert.Regexp(t, `^OPT-FV-\d{4}-00001$`, first.Transfer.VoucherNo)
	assert.Regexp(t, `^OPT-FV-\d{4}-00002$`, second.Transfer.VoucherNo)
	assert.Equal(t, ledger.FundIn, second.Transfer.Direction)
	assert.Equal(t, types.FromMajor(7500), second.AccountBalance)
}

func TestFundOut_InsufficientBalanceLeavesBalance(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Funds.FundIn(ctx, input(ledger.Hospital, types.FromMajor(15000)))
	require.NoError(t, err)

	_, err = svc.Funds.FundOut(ctx, input(ledger.Hospital, types.FromMajor(20000)))
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientBalance, apperror.Kind(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "hospital", appErr.Details["account"])

	b, err := svc.Ledger.Balance(ctx, ledger.Hospital)
	require.NoError(t, err)
	assert.Equal(t, types.FromMajor(15000), b)

	list, err := svc.Funds.List(ctx, fund.Filter{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestFundIn_BalanceOverflowRolledBack(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Funds.FundIn(ctx, input(ledger.Hospital, types.MaxAmount))
	require.NoError(t, err)

	_, err = svc.Funds.FundIn(ctx, input(ledger.Hospital, types.MaxAmount))
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	b, err := svc.Ledger.Balance(ctx, ledger.Hospital)
	require.NoError(t, err)
	assert.Equal(t, types.MaxAmount, b)

	list, err := svc.Funds.List(ctx, fund.Filter{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestFund_Validation(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	in := input(ledger.Main, 0)
	_, err := svc.Funds.FundIn(ctx, in)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	in = input(ledger.Main, 100)
	in.InvestorName = "   "
	_, err = svc.Funds.FundIn(ctx, in)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	in = input("cafeteria", 100)
	_, err = svc.Funds.FundOut(ctx, in)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
}

func TestDelete_ReversesEffect(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	in, err := svc.Funds.FundIn(ctx, input(ledger.Operation, types.FromMajor(1000)))
	require.NoError(t, err)
	out, err := svc.Funds.FundOut(ctx, input(ledger.Operation, types.FromMajor(400)))
	require.NoError(t, err)
	require.Equal(t, types.FromMajor(600), out.AccountBalance)

	// deleting a fund_out credits the money back
	res, err := svc.Funds.Delete(ctx, out.Transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FromMajor(1000), res.AccountBalance)

	res, err = svc.Funds.Delete(ctx, in.Transfer.ID)
	require.NoError(t, err)
	assert.True(t, res.AccountBalance.IsZero())

	_, err = svc.Funds.Delete(ctx, in.Transfer.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.Kind(err))
}

func TestDelete_SpentFundInFails(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	in, err := svc.Funds.FundIn(ctx, input(ledger.Medicine, types.FromMajor(1000)))
	require.NoError(t, err)
	_, err = svc.Funds.FundOut(ctx, input(ledger.Medicine, types.FromMajor(700)))
	require.NoError(t, err)

	_, err = svc.Funds.Delete(ctx, in.Transfer.ID)
	assert.Equal(t, apperror.KindInsufficientBalance, apperror.Kind(err))

	got, err := svc.Funds.Get(ctx, in.Transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Transfer.VoucherNo, got.VoucherNo)
}

func TestDelete_UnknownID(t *testing.T) {
	svc := setup(t)
	_, err := svc.Funds.Delete(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestFundOut_ConcurrentNeverOverdraws(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Funds.FundIn(ctx, input(ledger.Main, types.FromMajor(10000)))
	require.NoError(t, err)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Funds.FundOut(ctx, input(ledger.Main, types.FromMajor(1000)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.Kind(err) == apperror.KindInsufficientBalance:
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, rejected)

	b, err := svc.Ledger.Balance(ctx, ledger.Main)
	require.NoError(t, err)
	assert.True(t, b.IsZero())

	rec, err := svc.Ledger.Reconcile(ctx, ledger.Main)
	require.NoError(t, err)
	assert.True(t, rec.Balanced())

	list, err := svc.Funds.List(ctx, fund.Filter{})
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, tr := range list.Items {
		assert.False(t, seen[tr.VoucherNo], "duplicate voucher %s", tr.VoucherNo)
		seen[tr.VoucherNo] = true
	}
	assert.Len(t, seen, 11)
}
