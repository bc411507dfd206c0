package testutil

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/rippl/common"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
)

func NewRandomAccount(t *testing.T) *common.Account {
	account, err := common.NewRandomAccount()
	require.NoError(t, err)

	return account
}

// FundAccount credits lamports to an account outside of any transaction
func FundAccount(t *testing.T, db data.DatabaseData, account ed25519.PublicKey, lamports uint64) {
	address := base58.Encode(account)

	record, err := db.GetBalance(context.Background(), address)
	if err == balance.ErrNotFound {
		record = &balance.Record{Address: address}
	} else {
		require.NoError(t, err)
	}

	record.Lamports += lamports
	require.NoError(t, db.SaveBalance(context.Background(), record))
}
