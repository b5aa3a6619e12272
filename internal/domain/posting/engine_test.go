package posting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/ledger"
)

func TestMovementSet_NetsDirectionFlip(t *testing.T) {
	// income 500 edited into expense 500 on the same account
	set := NewMovementSet().
		Reverse(ledger.Hospital, types.FromMajor(500)).
		Add(ledger.Hospital, types.FromMajor(-500))

	assert.Equal(t, []Movement{{Account: ledger.Hospital, Delta: types.FromMajor(-1000)}}, set.Movements())
}

func TestMovementSet_LockOrder(t *testing.T) {
	set := NewMovementSet().
		Add(ledger.Main, 100).
		Add(ledger.Optics, 100).
		Add(ledger.Hospital, -50)

	assert.Equal(t, []ledger.AccountKind{ledger.Hospital, ledger.Optics, ledger.Main}, set.Accounts())
}

func TestMovementSet_KeepsCancelledAccounts(t *testing.T) {
	// description-only edit: reverse and re-apply the same effect
	set := NewMovementSet().
		Reverse(ledger.Medicine, 700).
		Add(ledger.Medicine, 700)

	assert.Equal(t, []Movement{{Account: ledger.Medicine, Delta: 0}}, set.Movements())
}

func TestMovementSet_AccountMove(t *testing.T) {
	set := NewMovementSet().
		Reverse(ledger.Operation, 300).
		Add(ledger.Hospital, 300)

	assert.Equal(t, []Movement{
		{Account: ledger.Hospital, Delta: 300},
		{Account: ledger.Operation, Delta: -300},
	}, set.Movements())
}

func TestMovementSet_OutOfRangeNetIsRejected(t *testing.T) {
	// expense of MaxAmount edited into income of MaxAmount nets to 2^63
	set := NewMovementSet().
		Reverse(ledger.Hospital, types.MaxAmount.Neg()).
		Add(ledger.Hospital, types.MaxAmount)

	_, err := (&Engine{}).Apply(context.Background(), set)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
}
