package filestore

import (
	"context"
	"time"

	"github.com/silverquant/tierstore/internal/storage"
)

// accountDoc is one entry of accounts.json, keyed by account id.
type accountDoc struct {
	AccountName    string  `json:"account_name"`
	Broker         string  `json:"broker"`
	InitialCapital float64 `json:"initial_capital"`
	CurrentCapital float64 `json:"current_capital"`
	TotalAssets    float64 `json:"total_assets"`
	PositionValue  float64 `json:"position_value"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}

// strategyDoc is one entry of strategies.json, keyed by strategy code. The
// params map holds the active parameter set; ParamsVersion increments on
// every save so the versioning contract matches the relational tier.
type strategyDoc struct {
	StrategyName  string                        `json:"strategy_name"`
	StrategyType  string                        `json:"strategy_type"`
	Version       string                        `json:"version"`
	Status        string                        `json:"status"`
	Description   string                        `json:"description,omitempty"`
	Params        map[string]storage.ParamValue `json:"params"`
	ParamsVersion int                           `json:"params_version"`
	CreatedAt     string                        `json:"created_at"`
	UpdatedAt     string                        `json:"updated_at,omitempty"`
}

// CreateAccount inserts a new account document entry. Returns (false, nil)
// when the id is taken.
func (s *Store) CreateAccount(_ context.Context, a storage.Account) (bool, error) {
	if a.AccountID == "" {
		return false, storage.Invalidf("account id is required")
	}
	if !a.Broker.Valid() {
		return false, storage.Invalidf("broker %q", a.Broker)
	}
	if a.InitialCapital <= 0 {
		return false, storage.Invalidf("initial capital %v must be > 0", a.InitialCapital)
	}

	path := s.path(fileAccounts)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := map[string]accountDoc{}
	if err := readDoc(path, &doc); err != nil {
		return false, err
	}
	if _, exists := doc[a.AccountID]; exists {
		s.log.Warn().Str("account", a.AccountID).Msg("account already exists")
		return false, nil
	}

	status := a.Status
	if status == "" {
		status = storage.AccountActive
	}
	doc[a.AccountID] = accountDoc{
		AccountName:    a.AccountName,
		Broker:         string(a.Broker),
		InitialCapital: a.InitialCapital,
		CurrentCapital: a.InitialCapital,
		TotalAssets:    a.InitialCapital,
		Status:         string(status),
		CreatedAt:      time.Now().Format(time.RFC3339),
	}
	if err := writeDoc(path, doc); err != nil {
		return false, err
	}
	return true, nil
}

// GetAccount returns the account or nil when unknown.
func (s *Store) GetAccount(_ context.Context, accountID string) (*storage.Account, error) {
	path := s.path(fileAccounts)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := map[string]accountDoc{}
	if err := readDoc(path, &doc); err != nil {
		return nil, err
	}
	entry, ok := doc[accountID]
	if !ok {
		return nil, nil
	}
	a := &storage.Account{
		AccountID:      accountID,
		AccountName:    entry.AccountName,
		Broker:         storage.Broker(entry.Broker),
		InitialCapital: entry.InitialCapital,
		CurrentCapital: entry.CurrentCapital,
		TotalAssets:    entry.TotalAssets,
		PositionValue:  entry.PositionValue,
		Status:         storage.AccountStatus(entry.Status),
	}
	if ts, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
		a.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, entry.UpdatedAt); err == nil {
		a.UpdatedAt = ts
	}
	return a, nil
}

// UpdateAccountCapital refreshes the capital fields. Returns (false, nil)
// when the account is unknown.
func (s *Store) UpdateAccountCapital(_ context.Context, accountID string, currentCapital, totalAssets, positionValue float64) (bool, error) {
	if currentCapital < 0 {
		return false, storage.Invalidf("current capital %v must be >= 0", currentCapital)
	}

	path := s.path(fileAccounts)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := map[string]accountDoc{}
	if err := readDoc(path, &doc); err != nil {
		return false, err
	}
	entry, ok := doc[accountID]
	if !ok {
		s.log.Warn().Str("account", accountID).Msg("account not found")
		return false, nil
	}
	entry.CurrentCapital = currentCapital
	entry.TotalAssets = totalAssets
	entry.PositionValue = positionValue
	entry.UpdatedAt = time.Now().Format(time.RFC3339)
	doc[accountID] = entry
	if err := writeDoc(path, doc); err != nil {
		return false, err
	}
	return true, nil
}

// CreateStrategy inserts a new strategy document entry. Returns (false,
// nil) when the code is taken.
func (s *Store) CreateStrategy(_ context.Context, st storage.Strategy) (bool, error) {
	if st.StrategyCode == "" {
		return false, storage.Invalidf("strategy code is required")
	}
	if !st.StrategyType.Valid() {
		return false, storage.Invalidf("strategy type %q", st.StrategyType)
	}

	path := s.path(fileStrategies)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := map[string]strategyDoc{}
	if err := readDoc(path, &doc); err != nil {
		return false, err
	}
	if _, exists := doc[st.StrategyCode]; exists {
		s.log.Warn().Str("strategy", st.StrategyCode).Msg("strategy already exists")
		return false, nil
	}

	status := st.Status
	if status == "" {
		status = storage.StrategyActive
	}
	doc[st.StrategyCode] = strategyDoc{
		StrategyName: st.StrategyName,
		StrategyType: string(st.StrategyType),
		Version:      st.Version,
		Status:       string(status),
		Description:  st.Description,
		Params:       map[string]storage.ParamValue{},
		CreatedAt:    time.Now().Format(time.RFC3339),
	}
	if err := writeDoc(path, doc); err != nil {
		return false, err
	}
	return true, nil
}

// GetStrategyParams returns the active parameter set, or ok=false when the
// strategy is unknown. A known strategy with no parameters yields an empty
// non-nil map.
func (s *Store) GetStrategyParams(_ context.Context, strategyCode string) (map[string]storage.ParamValue, bool, error) {
	path := s.path(fileStrategies)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := map[string]strategyDoc{}
	if err := readDoc(path, &doc); err != nil {
		return nil, false, err
	}
	entry, ok := doc[strategyCode]
	if !ok {
		return nil, false, nil
	}
	params := entry.Params
	if params == nil {
		params = map[string]storage.ParamValue{}
	}
	return params, true, nil
}

// SaveStrategyParams replaces the active parameter set and bumps the
// version counter. Returns (false, nil) when the strategy is unknown.
func (s *Store) SaveStrategyParams(_ context.Context, strategyCode string, params map[string]storage.ParamValue) (bool, error) {
	path := s.path(fileStrategies)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := map[string]strategyDoc{}
	if err := readDoc(path, &doc); err != nil {
		return false, err
	}
	entry, ok := doc[strategyCode]
	if !ok {
		s.log.Warn().Str("strategy", strategyCode).Msg("strategy not found")
		return false, nil
	}
	if params == nil {
		params = map[string]storage.ParamValue{}
	}
	entry.Params = params
	entry.ParamsVersion++
	entry.UpdatedAt = time.Now().Format(time.RFC3339)
	doc[strategyCode] = entry
	if err := writeDoc(path, doc); err != nil {
		return false, err
	}
	return true, nil
}

// CompareStrategyParams diffs newParams against the active set.
func (s *Store) CompareStrategyParams(ctx context.Context, strategyCode string, newParams map[string]storage.ParamValue) (storage.ParamDiff, error) {
	current, ok, err := s.GetStrategyParams(ctx, strategyCode)
	if err != nil {
		return storage.ParamDiff{}, err
	}
	if !ok {
		current = map[string]storage.ParamValue{}
	}
	return storage.DiffParams(current, newParams), nil
}
