package redisstore

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/silverquant/tierstore/internal/storage"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "held_days:55009728", heldKey("55009728"))
	assert.Equal(t, "max_prices:55009728", maxKey("55009728"))
	assert.Equal(t, "min_prices:55009728", minKey("55009728"))
	assert.Equal(t, "_inc_date:55009728", dateKey("55009728"))
}

func TestIncrementScriptShape(t *testing.T) {
	// The increment, the date-marker check and the marker write all live in
	// one script so concurrent callers cannot double-increment.
	src := allHeldIncScript.Hash()
	assert.NotEmpty(t, src)
}

func TestUnsupportedOperationClasses(t *testing.T) {
	s := NewFromClient(nil, zerolog.Nop())
	ctx := context.Background()

	err := s.RecordTrade(ctx, storage.Trade{})
	assert.ErrorIs(t, err, storage.ErrUnsupported)

	_, err = s.QueryTrades(ctx, storage.TradeQuery{})
	assert.ErrorIs(t, err, storage.ErrUnsupported)

	_, err = s.GetKline(ctx, "SH600000", "", "", storage.FreqDaily)
	assert.ErrorIs(t, err, storage.ErrUnsupported)

	_, err = s.CreateAccount(ctx, storage.Account{})
	assert.ErrorIs(t, err, storage.ErrUnsupported)

	_, _, err = s.GetStrategyParams(ctx, "wencai_v1")
	assert.ErrorIs(t, err, storage.ErrUnsupported)
}

func TestValidationBeforeConnection(t *testing.T) {
	// Argument checks fire before any network round trip, so a nil client
	// is safe here.
	s := NewFromClient(nil, zerolog.Nop())
	ctx := context.Background()

	err := s.UpdateHeldDays(ctx, "SH600000", "acct", -1)
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	err = s.UpdateMaxPrice(ctx, "SH600000", "acct", 0)
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	err = s.UpdateMinPrice(ctx, "SH600000", "acct", -0.5)
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	// Zero codes short-circuits without touching the connection.
	assert.NoError(t, s.BatchNewHeld(ctx, "acct", nil))
}
