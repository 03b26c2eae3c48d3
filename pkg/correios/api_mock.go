package correios

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	AuthenticateCalls int
	GetPricesCalls    int
	ListServicesCalls int

	OnAuthenticate func(ctx context.Context, creds Credentials) (*TokenResponse, error)
	OnGetPrices    func(ctx context.Context, token string, req *PriceRequest) ([]TariffRow, error)
	OnListServices func(ctx context.Context, token, cnpj, contract string) ([]ContractService, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// Authenticate returns a mock bearer token valid for one hour.
func (m *MockAPIClient) Authenticate(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	m.AuthenticateCalls++

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, NewCarrierError("token", "MOCK_ERROR", "Simulated API error")
	}

	if m.OnAuthenticate != nil {
		return m.OnAuthenticate(ctx, creds)
	}

	return &TokenResponse{
		Token:     "mock-token-" + uuid.New().String()[:8],
		ExpiresAt: time.Now().Add(time.Hour).Format(time.RFC3339),
		CNPJ:      "34028316000103",
		PostCard: PostCard{
			Number:   creds.PostCardNumber,
			Contract: "9912345678",
			DR:       36,
		},
	}, nil
}

// GetPrices returns mock tariff rows, one per requested product.
func (m *MockAPIClient) GetPrices(ctx context.Context, token string, req *PriceRequest) ([]TariffRow, error) {
	m.GetPricesCalls++

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, NewCarrierError("price", "MOCK_ERROR", "Simulated API error")
	}

	if m.OnGetPrices != nil {
		return m.OnGetPrices(ctx, token, req)
	}

	rows := make([]TariffRow, 0, len(req.Products))
	for _, p := range req.Products {
		row := TariffRow{
			CoProduto:     p.CoProduto,
			PcProduto:     "21,00",
			PcFinal:       "23,50",
			PrazoEntrega:  "3",
			EntregaSabado: "N",
		}
		if p.VlDeclarado > 0 {
			row.PcTotalServicosAdicionais = "2,50"
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ListContractServices returns a mock contract service listing.
func (m *MockAPIClient) ListContractServices(ctx context.Context, token, cnpj, contract string) ([]ContractService, error) {
	m.ListServicesCalls++

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, NewCarrierError("services", "MOCK_ERROR", "Simulated API error")
	}

	if m.OnListServices != nil {
		return m.OnListServices(ctx, token, cnpj, contract)
	}

	return []ContractService{
		{Code: "03220", Description: "SEDEX CONTRATO AG"},
		{Code: "03298", Description: "PAC CONTRATO AG"},
		{Code: "03204", Description: "SEDEX HOJE EMPRESARIAL"},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
