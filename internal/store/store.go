// Package store keeps the account and app state that the read surface renders.
// Operations never mutate it directly: they return patches which the caller applies.
package store

import (
	"maps"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/internal/domain"
)

// AccountState per-account snapshot.
type AccountState struct {
	Loading  bool                              `json:"loading"`
	Balances domain.Balances                   `json:"balances"`
	Staking  domain.StakingAllowances          `json:"staking"`
	Bonding  domain.BondingAllowances          `json:"bonding"`
	Bonds    map[string]domain.UserBondDetails `json:"bonds"`

	// LastError is the message of the most recent rejected account operation.
	LastError string `json:"lastError,omitempty"`
}

// AppState protocol-wide snapshot.
type AppState struct {
	Loading            bool              `json:"loading"`
	LoadingMarketPrice bool              `json:"loadingMarketPrice"`
	Metrics            domain.AppMetrics `json:"metrics"`

	// MarketPrice is nil until a price has been resolved.
	MarketPrice *decimal.Decimal `json:"marketPrice,omitempty"`
	LastError   string           `json:"lastError,omitempty"`
}

// State full store contents.
type State struct {
	Account AccountState `json:"account"`
	App     AppState     `json:"app"`
}

// AccountPatch partial account update. Nil fields are left untouched.
type AccountPatch struct {
	Balances domain.Balances
	Staking  *domain.StakingAllowances
	Bonding  *domain.BondingAllowances
	Bond     *domain.UserBondDetails
}

// AppPatch partial app update. Nil fields are left untouched.
type AppPatch struct {
	Metrics     *domain.AppMetrics
	MarketPrice *decimal.Decimal
}

// Store guards State.
type Store struct {
	mu    sync.RWMutex
	state State
}

// New returns an empty store.
func New() *Store {
	return &Store{state: State{Account: AccountState{Bonds: make(map[string]domain.UserBondDetails)}}}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Account.Balances = s.state.Account.Balances.Clone()
	out.Account.Bonds = maps.Clone(s.state.Account.Bonds)
	if s.state.App.Metrics.Staking != nil {
		staking := *s.state.App.Metrics.Staking
		out.App.Metrics.Staking = &staking
	}
	if s.state.App.MarketPrice != nil {
		price := *s.state.App.MarketPrice
		out.App.MarketPrice = &price
	}
	return out
}

// ApplyAccount merges p into the account state. Balances are replaced wholesale,
// a bond entry is added or overwritten under its name.
func (s *Store) ApplyAccount(p AccountPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := &s.state.Account
	if p.Balances != nil {
		acc.Balances = p.Balances.Clone()
	}
	if p.Staking != nil {
		acc.Staking = *p.Staking
	}
	if p.Bonding != nil {
		acc.Bonding = *p.Bonding
	}
	if p.Bond != nil && p.Bond.Bond != "" {
		if acc.Bonds == nil {
			acc.Bonds = make(map[string]domain.UserBondDetails)
		}
		acc.Bonds[p.Bond.Bond] = *p.Bond
	}
	acc.LastError = ""
}

// ApplyApp merges p into the app state.
func (s *Store) ApplyApp(p AppPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app := &s.state.App
	if p.Metrics != nil {
		app.Metrics = *p.Metrics
	}
	if p.MarketPrice != nil {
		price := *p.MarketPrice
		app.MarketPrice = &price
	}
	app.LastError = ""
}

// SetAccountLoading flips the account loading flag.
func (s *Store) SetAccountLoading(loading bool) {
	s.mu.Lock()
	s.state.Account.Loading = loading
	s.mu.Unlock()
}

// SetAppLoading flips the app loading flag.
func (s *Store) SetAppLoading(loading bool) {
	s.mu.Lock()
	s.state.App.Loading = loading
	s.mu.Unlock()
}

// SetMarketPriceLoading flips the market price loading flag.
func (s *Store) SetMarketPriceLoading(loading bool) {
	s.mu.Lock()
	s.state.App.LoadingMarketPrice = loading
	s.mu.Unlock()
}

// RejectAccount records a failed account operation.
func (s *Store) RejectAccount(err error) {
	s.mu.Lock()
	s.state.Account.LastError = err.Error()
	s.mu.Unlock()
}

// RejectApp records a failed app operation.
func (s *Store) RejectApp(err error) {
	s.mu.Lock()
	s.state.App.LastError = err.Error()
	s.mu.Unlock()
}
