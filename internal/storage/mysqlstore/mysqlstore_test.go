package mysqlstore

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/silverquant/tierstore/internal/storage"
)

func TestParamTypeColumnMapping(t *testing.T) {
	// The column spells out "string"; every other tag passes through.
	assert.Equal(t, "string", columnType(storage.ParamStr))
	assert.Equal(t, "int", columnType(storage.ParamInt))
	assert.Equal(t, "float", columnType(storage.ParamFloat))
	assert.Equal(t, "json", columnType(storage.ParamJSON))

	assert.Equal(t, storage.ParamStr, tagOfColumn("string"))
	assert.Equal(t, storage.ParamInt, tagOfColumn("int"))
	assert.Equal(t, storage.ParamFloat, tagOfColumn("float"))
	assert.Equal(t, storage.ParamJSON, tagOfColumn("json"))

	for _, tag := range []storage.ParamType{storage.ParamInt, storage.ParamFloat, storage.ParamStr, storage.ParamJSON} {
		assert.Equal(t, tag, tagOfColumn(columnType(tag)), "round trip for %s", tag)
	}
}

func TestSchemaCoversEveryTable(t *testing.T) {
	ddl := strings.Join(schemaDDL, "\n")
	for _, table := range []string{
		"account", "strategy", "account_strategy", "strategy_param",
		"user", "role", "permission", "user_role", "role_permission",
	} {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestSchemaIsIdempotentAndVersioned(t *testing.T) {
	ddl := strings.Join(schemaDDL, "\n")

	for _, stmt := range schemaDDL {
		assert.Contains(t, stmt, "IF NOT EXISTS", "every statement reruns safely")
		assert.Contains(t, stmt, "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	}

	// Parameter history keeps one row per (strategy, key, version) and an
	// index that serves the active-set lookup.
	assert.Contains(t, ddl, "UNIQUE KEY uq_strategy_param_version (strategy_id, param_key, version)")
	assert.Contains(t, ddl, "KEY idx_strategy_active (strategy_id, param_key, is_active)")
	assert.Contains(t, ddl, "param_type ENUM('int','float','string','json')")
	assert.Contains(t, ddl, "broker ENUM('QMT','GM','TDX')")
	assert.Contains(t, ddl, "strategy_type ENUM('wencai','remote','technical')")
}

func TestUnsupportedOperationClasses(t *testing.T) {
	s := NewFromDB(nil, zerolog.Nop())
	ctx := context.Background()

	_, _, err := s.GetHeldDays(ctx, "SH600000", "acct")
	assert.ErrorIs(t, err, storage.ErrUnsupported)

	_, err = s.AllHeldInc(ctx, "acct")
	assert.ErrorIs(t, err, storage.ErrUnsupported)

	err = s.RecordTrade(ctx, storage.Trade{})
	assert.ErrorIs(t, err, storage.ErrUnsupported)

	_, err = s.GetKline(ctx, "SH600000", "", "", storage.FreqDaily)
	assert.ErrorIs(t, err, storage.ErrUnsupported)
}

func TestValidationBeforeConnection(t *testing.T) {
	s := NewFromDB(nil, zerolog.Nop())
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, storage.Account{AccountID: "", Broker: storage.BrokerQMT, InitialCapital: 1})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = s.CreateAccount(ctx, storage.Account{AccountID: "a", Broker: "IB", InitialCapital: 1})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = s.CreateAccount(ctx, storage.Account{AccountID: "a", Broker: storage.BrokerQMT, InitialCapital: 0})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = s.CreateStrategy(ctx, storage.Strategy{StrategyCode: "", StrategyType: storage.StrategyWencai})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = s.CreateStrategy(ctx, storage.Strategy{StrategyCode: "x", StrategyType: "manual"})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestRBACValidationBeforeConnection(t *testing.T) {
	s := NewFromDB(nil, zerolog.Nop())
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "", "hash", "")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = s.CreateUser(ctx, "ops", "", "")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = s.CreateRole(ctx, "", "")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = s.CreatePermission(ctx, "trade.read", "", "read", "")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}
