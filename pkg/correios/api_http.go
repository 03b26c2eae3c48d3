package correios

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	httpClient *http.Client
	authClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL     string
	Timeout     time.Duration // pricing and listing calls
	AuthTimeout time.Duration // token handshake budget
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	authTimeout := cfg.AuthTimeout
	if authTimeout == 0 {
		authTimeout = 6 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		authClient: &http.Client{Timeout: authTimeout},
	}
}

// Authenticate performs the basic-auth token handshake.
// POST /token/v1/autentica/cartaopostagem
func (c *HTTPAPIClient) Authenticate(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	body, err := json.Marshal(map[string]string{"numero": creds.PostCardNumber})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/token/v1/autentica/cartaopostagem", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(creds.Username, creds.AccessCode)

	resp, err := c.authClient.Do(req)
	if err != nil {
		return nil, NewCarrierError("token", "TRANSPORT", err.Error()).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError("token", resp)
	}

	var result TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &result, nil
}

// GetPrices fetches tariff rows for the requested service codes.
// POST /preco/v1/nacional
func (c *HTTPAPIClient) GetPrices(ctx context.Context, token string, req *PriceRequest) ([]TariffRow, error) {
	resp, err := c.doBearer(ctx, http.MethodPost, "/preco/v1/nacional", token, req)
	if err != nil {
		return nil, NewCarrierError("price", "TRANSPORT", err.Error()).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError("price", resp)
	}

	var rows []TariffRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}
	return rows, nil
}

// ListContractServices lists the services enabled on a pricing contract.
// GET /meucontrato/v1/empresas/{cnpj}/contratos/{contract}/servicos
func (c *HTTPAPIClient) ListContractServices(ctx context.Context, token, cnpj, contract string) ([]ContractService, error) {
	path := fmt.Sprintf("/meucontrato/v1/empresas/%s/contratos/%s/servicos?page=0&size=50", cnpj, contract)

	resp, err := c.doBearer(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, NewCarrierError("services", "TRANSPORT", err.Error()).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError("services", resp)
	}

	var result serviceListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode services response: %w", err)
	}
	return result.Items, nil
}

// doBearer performs a bearer-authenticated request against the API.
func (c *HTTPAPIClient) doBearer(ctx context.Context, method, path, token string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return c.httpClient.Do(req)
}

// parseError extracts the carrier's error text from a non-2xx response,
// preferring the structured txErro/msgs fields over the raw body.
func (c *HTTPAPIClient) parseError(endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	code := fmt.Sprintf("HTTP_%d", resp.StatusCode)

	var rows []apiErrorBody
	if err := json.Unmarshal(body, &rows); err == nil && len(rows) > 0 && rows[0].TxErro != "" {
		return NewCarrierError(endpoint, code, rows[0].TxErro).WithStatusCode(resp.StatusCode)
	}

	var single apiErrorBody
	if err := json.Unmarshal(body, &single); err == nil {
		if single.TxErro != "" {
			return NewCarrierError(endpoint, code, single.TxErro).WithStatusCode(resp.StatusCode)
		}
		if len(single.Msgs) > 0 {
			return NewCarrierError(endpoint, code, single.Msgs[0]).WithStatusCode(resp.StatusCode)
		}
	}

	return NewCarrierError(endpoint, code, string(body)).WithStatusCode(resp.StatusCode)
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
