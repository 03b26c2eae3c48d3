// Package correios provides integration with the Correios (Brazilian
// national postal carrier) token, pricing and contract APIs.
package correios

import (
	"context"
)

// APIClient defines the interface for Correios API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// Authenticate exchanges basic-auth credentials plus a postcard number
	// for a bearer token and contract metadata.
	Authenticate(ctx context.Context, creds Credentials) (*TokenResponse, error)

	// GetPrices fetches tariff rows for the requested service codes.
	GetPrices(ctx context.Context, token string, req *PriceRequest) ([]TariffRow, error)

	// ListContractServices lists the services enabled on a pricing contract.
	ListContractServices(ctx context.Context, token, cnpj, contract string) ([]ContractService, error)
}

// Credentials identify a merchant's Correios account.
type Credentials struct {
	Username       string
	AccessCode     string
	PostCardNumber string
}

// Complete reports whether all three fields needed for a token
// handshake are present.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.AccessCode != "" && c.PostCardNumber != ""
}

// ============================================================================
// API Request/Response Types (match Correios API v1 structure)
// ============================================================================

// TokenResponse is the response from POST /token/v1/autentica/cartaopostagem.
type TokenResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expiraEm"` // RFC 3339
	CNPJ      string   `json:"cnpj"`
	PostCard  PostCard `json:"cartaoPostagem"`
}

// PostCard is the postal-card metadata bound to a token.
type PostCard struct {
	Number   string `json:"numero"`
	Contract string `json:"contrato"`
	DR       int    `json:"dr"`
}

// PriceRequest represents a Correios pricing request.
// POST /preco/v1/nacional endpoint.
type PriceRequest struct {
	BatchID  string         `json:"idLote"`
	Products []PriceProduct `json:"parametrosProduto"`
}

// PriceProduct holds the package, value and service parameters for a
// single service code within a pricing request.
type PriceProduct struct {
	CoProduto          string   `json:"coProduto"`
	NuRequisicao       int      `json:"nuRequisicao"`
	CepOrigem          string   `json:"cepOrigem"`
	CepDestino         string   `json:"cepDestino"`
	PsObjeto           float64  `json:"psObjeto"`
	Comprimento        float64  `json:"comprimento"`
	Altura             float64  `json:"altura"`
	Largura            float64  `json:"largura"`
	VlDeclarado        float64  `json:"vlDeclarado,omitempty"`
	ServicosAdicionais []string `json:"servicosAdicionais,omitempty"`
	NuContrato         string   `json:"nuContrato,omitempty"`
	NuDR               int      `json:"nuDR,omitempty"`
}

// TariffRow is one carrier-quoted price/delivery record for a single
// service code. Money fields come back as decimal-comma strings.
type TariffRow struct {
	CoProduto                 string `json:"coProduto"`
	PcProduto                 string `json:"pcProduto"`
	PcTotalServicosAdicionais string `json:"pcTotalServicosAdicionais"`
	PcFinal                   string `json:"pcFinal"`
	PrazoEntrega              string `json:"prazoEntrega"`
	EntregaSabado             string `json:"entregaSabado"`
	CoErro                    string `json:"coErro,omitempty"`
	TxErro                    string `json:"txErro,omitempty"`
}

// ContractService is one service enabled on a contract.
// GET /meucontrato/v1/empresas/{cnpj}/contratos/{contract}/servicos
type ContractService struct {
	Code        string `json:"codigo"`
	Description string `json:"descricao"`
}

// serviceListResponse wraps the paginated contract-services listing.
type serviceListResponse struct {
	Items []ContractService `json:"itens"`
}

// apiErrorBody matches the error payloads the Correios API returns: either
// an array of tariff-row-shaped entries with txErro, or an object with msgs.
type apiErrorBody struct {
	TxErro string   `json:"txErro"`
	Msgs   []string `json:"msgs"`
}
