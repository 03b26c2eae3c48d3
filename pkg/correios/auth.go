package correios

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// tokenExpiryMargin is how close to expiry a cached token is still
// considered usable. Within this window the token is refreshed.
const tokenExpiryMargin = 9 * time.Second

// Session is an authenticated view of the carrier API for one store: the
// resolved bearer token plus the contract snapshot callers may need for
// contract-scoped endpoints.
type Session struct {
	Token    string
	Contract *Contract
}

// Manager owns the carrier-credential lifecycle: token acquisition,
// expiry-aware reuse and contract persistence.
type Manager struct {
	api    APIClient
	store  ContractStore
	logger *otelzap.Logger
	clock  func() time.Time
}

// ManagerConfig holds Manager dependencies. Clock is optional and defaults
// to time.Now; tests inject a fixed clock.
type ManagerConfig struct {
	API    APIClient
	Store  ContractStore
	Logger *otelzap.Logger
	Clock  func() time.Time
}

// NewManager creates a credential manager.
func NewManager(cfg ManagerConfig) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		api:    cfg.API,
		store:  cfg.Store,
		logger: cfg.Logger,
		clock:  clock,
	}
}

// Session resolves an authenticated session for the store.
//
// When explicit credentials are supplied a fresh handshake is always
// performed, bypassing any cached token. Otherwise the persisted contract is
// loaded: a token not within tokenExpiryMargin of its expiry is reused with
// no network call, an expired one triggers re-authentication with the
// stored credentials. Returns ErrNoContract when nothing is persisted and
// no explicit credentials were given.
func (m *Manager) Session(ctx context.Context, storeID int64, explicit *Credentials) (*Session, error) {
	if explicit != nil {
		if !explicit.Complete() {
			return nil, ErrMissingCredentials
		}
		return m.authenticate(ctx, storeID, *explicit, nil)
	}

	contract, err := m.store.Load(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if m.clock().Add(tokenExpiryMargin).Before(contract.ExpiredAt) {
		return &Session{Token: contract.Token, Contract: contract}, nil
	}

	return m.authenticate(ctx, storeID, contract.Credentials(), contract)
}

// authenticate performs the token handshake and persists the merged
// contract. existing carries the previously stored contract, nil when the
// store is authenticating for the first time or with explicit credentials.
func (m *Manager) authenticate(ctx context.Context, storeID int64, creds Credentials, existing *Contract) (*Session, error) {
	resp, err := m.api.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	expiredAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid token expiry %q: %w", resp.ExpiresAt, err)
	}

	postCardPayload, _ := json.Marshal(resp.PostCard)

	contract := existing
	if contract == nil {
		contract = &Contract{
			StoreID:        storeID,
			Username:       creds.Username,
			AccessCode:     creds.AccessCode,
			PostCardNumber: creds.PostCardNumber,
		}
	}
	contract.NuContrato = resp.PostCard.Contract
	contract.NuDR = resp.PostCard.DR
	contract.CNPJ = resp.CNPJ
	contract.Token = resp.Token
	contract.CartaoPostagem = string(postCardPayload)
	contract.ExpiredAt = expiredAt

	if err := m.store.Merge(ctx, contract); err != nil {
		// The token is still usable for this request; persistence catches
		// up on the next handshake.
		m.logger.Warn("Failed to persist correios contract",
			zap.Int64("store_id", storeID),
			zap.Error(err),
		)
	}

	m.logger.Info("Authenticated with Correios",
		zap.Int64("store_id", storeID),
		zap.String("nu_contrato", contract.NuContrato),
		zap.Time("expired_at", expiredAt),
	)

	return &Session{Token: resp.Token, Contract: contract}, nil
}
