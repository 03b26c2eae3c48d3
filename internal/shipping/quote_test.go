package shipping_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelink/correios-bridge/internal/shipping"
	"github.com/storelink/correios-bridge/internal/telemetry"
	"github.com/storelink/correios-bridge/pkg/correios"
)

// memContractStore is an in-memory ContractStore for tests.
type memContractStore struct {
	contracts map[int64]*correios.Contract
}

func newMemContractStore() *memContractStore {
	return &memContractStore{contracts: make(map[int64]*correios.Contract)}
}

func (s *memContractStore) Load(ctx context.Context, storeID int64) (*correios.Contract, error) {
	contract, ok := s.contracts[storeID]
	if !ok {
		return nil, correios.ErrNoContract
	}
	copied := *contract
	return &copied, nil
}

func (s *memContractStore) Merge(ctx context.Context, contract *correios.Contract) error {
	copied := *contract
	s.contracts[contract.StoreID] = &copied
	return nil
}

func seedContract(store *memContractStore, storeID int64) {
	store.contracts[storeID] = &correios.Contract{
		StoreID:        storeID,
		Username:       "loja",
		AccessCode:     "secret",
		PostCardNumber: "0067599079",
		NuContrato:     "9912345678",
		NuDR:           36,
		Token:          "cached-token",
		ExpiredAt:      time.Now().Add(time.Hour),
	}
}

func newQuoteService(mock *correios.MockAPIClient, store correios.ContractStore) *shipping.QuoteService {
	logger := telemetry.NewNopLogger()
	manager := correios.NewManager(correios.ManagerConfig{
		API:    mock,
		Store:  store,
		Logger: logger,
	})
	metrics := telemetry.NewMetricsWith(prometheus.NewRegistry())
	return shipping.NewQuoteService(manager, mock, logger, metrics)
}

func quoteRequest() *shipping.QuoteRequest {
	return &shipping.QuoteRequest{
		To: &shipping.Address{Zip: "41000-000"},
		Items: []shipping.CartItem{
			{Price: 50, Quantity: 2, Weight: &shipping.Measure{Value: 400, Unit: "g"}},
		},
	}
}

func TestQuote_Success(t *testing.T) {
	mock := correios.NewMockAPIClient()
	store := newMemContractStore()
	seedContract(store, 1001)
	svc := newQuoteService(mock, store)

	resp, err := svc.Quote(context.Background(), 1001, quoteRequest(),
		&shipping.Settings{Zip: "01310-100"})

	require.NoError(t, err)
	require.Len(t, resp.ShippingServices, 2)

	sedex := resp.ShippingServices[0]
	assert.Equal(t, "SEDEX", sedex.Label)
	assert.Equal(t, "SEDEX", sedex.ServiceName)
	assert.Equal(t, "03220", sedex.ServiceCode)
	assert.Equal(t, "Correios", sedex.Carrier)
	assert.Equal(t, "34704060000107", sedex.CarrierDocNumber)

	line := sedex.ShippingLine
	assert.Equal(t, 21.0, line.Price)
	assert.Equal(t, 23.5, line.TotalPrice)
	assert.Equal(t, 3, line.DeliveryTime.Days)
	assert.True(t, line.DeliveryTime.WorkingDays)
	assert.Equal(t, 3, line.PostingDeadline.Days)
	assert.Equal(t, 100.0, line.DeclaredValue)
	assert.Equal(t, 2.5, line.DeclaredValuePrice)
	assert.Equal(t, "01310100", line.From.Zip)
	assert.Equal(t, []string{"correios-api"}, line.Flags)
	assert.Equal(t, 800.0, line.Package.Weight.Value)

	assert.Equal(t, "PAC", resp.ShippingServices[1].Label)

	// Cached token, no handshake.
	assert.Equal(t, 0, mock.AuthenticateCalls)
	assert.Equal(t, 1, mock.GetPricesCalls)
}

func TestQuote_PreviewWithoutDestination(t *testing.T) {
	mock := correios.NewMockAPIClient()
	svc := newQuoteService(mock, newMemContractStore())

	threshold := 150.0
	resp, err := svc.Quote(context.Background(), 1001,
		&shipping.QuoteRequest{},
		&shipping.Settings{FreeShippingFromValue: &threshold})

	require.NoError(t, err)
	assert.Empty(t, resp.ShippingServices)
	require.NotNil(t, resp.FreeShippingFromValue)
	assert.Equal(t, 150.0, *resp.FreeShippingFromValue)
	assert.Equal(t, 0, mock.GetPricesCalls)
}

func TestQuote_MissingOriginZip(t *testing.T) {
	mock := correios.NewMockAPIClient()
	svc := newQuoteService(mock, newMemContractStore())

	_, err := svc.Quote(context.Background(), 1001, quoteRequest(), &shipping.Settings{})

	assert.ErrorIs(t, err, shipping.ErrMissingOriginZip)
	assert.Equal(t, 0, mock.GetPricesCalls)
}

func TestQuote_EmptyCart(t *testing.T) {
	mock := correios.NewMockAPIClient()
	svc := newQuoteService(mock, newMemContractStore())

	req := quoteRequest()
	req.Items = nil
	_, err := svc.Quote(context.Background(), 1001, req, &shipping.Settings{Zip: "01310-100"})

	assert.ErrorIs(t, err, shipping.ErrEmptyCart)
}

func TestQuote_NoContract(t *testing.T) {
	mock := correios.NewMockAPIClient()
	svc := newQuoteService(mock, newMemContractStore())

	_, err := svc.Quote(context.Background(), 1001, quoteRequest(), &shipping.Settings{Zip: "01310-100"})

	assert.ErrorIs(t, err, correios.ErrNoContract)
}

func TestQuote_CarrierRequestParameters(t *testing.T) {
	mock := correios.NewMockAPIClient()
	store := newMemContractStore()
	seedContract(store, 1001)
	svc := newQuoteService(mock, store)

	var captured *correios.PriceRequest
	mock.OnGetPrices = func(ctx context.Context, token string, req *correios.PriceRequest) ([]correios.TariffRow, error) {
		captured = req
		return nil, nil
	}

	req := quoteRequest()
	req.OwnHand = true
	req.Receipt = true
	_, err := svc.Quote(context.Background(), 1001, req, &shipping.Settings{Zip: "01310-100"})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.NotEmpty(t, captured.BatchID)
	require.Len(t, captured.Products, 2)

	product := captured.Products[0]
	assert.Equal(t, "03220", product.CoProduto)
	assert.Equal(t, 1, product.NuRequisicao)
	assert.Equal(t, "01310100", product.CepOrigem)
	assert.Equal(t, "41000000", product.CepDestino)
	assert.Equal(t, 800.0, product.PsObjeto)
	assert.Equal(t, 100.0, product.VlDeclarado)
	assert.Equal(t, []string{"002", "001"}, product.ServicosAdicionais)
	assert.Equal(t, "9912345678", product.NuContrato)
	assert.Equal(t, 36, product.NuDR)

	assert.Equal(t, 2, captured.Products[1].NuRequisicao)
}

func TestQuote_MerchantServicesAndLabels(t *testing.T) {
	mock := correios.NewMockAPIClient()
	store := newMemContractStore()
	seedContract(store, 1001)
	svc := newQuoteService(mock, store)

	settings := &shipping.Settings{
		Zip: "01310-100",
		Services: []shipping.ServiceLabel{
			{ServiceCode: "03298", Label: "Econômico"},
		},
	}

	resp, err := svc.Quote(context.Background(), 1001, quoteRequest(), settings)

	require.NoError(t, err)
	require.Len(t, resp.ShippingServices, 1)
	assert.Equal(t, "03298", resp.ShippingServices[0].ServiceCode)
	assert.Equal(t, "Econômico", resp.ShippingServices[0].Label)
	assert.Equal(t, "PAC", resp.ShippingServices[0].ServiceName)
}

func TestQuote_DropsUnpriceableRows(t *testing.T) {
	mock := correios.NewMockAPIClient()
	store := newMemContractStore()
	seedContract(store, 1001)
	svc := newQuoteService(mock, store)

	mock.OnGetPrices = func(ctx context.Context, token string, req *correios.PriceRequest) ([]correios.TariffRow, error) {
		return []correios.TariffRow{
			{CoProduto: "03220", PcFinal: "23,50", PrazoEntrega: "3", EntregaSabado: "N"},
			{CoProduto: "03298", CoErro: "CEP-004", TxErro: "CEP de destino inválido"},
			{CoProduto: "04510", PcFinal: "18,00", PrazoEntrega: "indefinido"},
		}, nil
	}

	resp, err := svc.Quote(context.Background(), 1001, quoteRequest(), &shipping.Settings{Zip: "01310-100"})

	require.NoError(t, err)
	require.Len(t, resp.ShippingServices, 1)
	assert.Equal(t, "03220", resp.ShippingServices[0].ServiceCode)
}

func TestQuote_LegacySedexCode(t *testing.T) {
	mock := correios.NewMockAPIClient()
	store := newMemContractStore()
	seedContract(store, 1001)
	svc := newQuoteService(mock, store)

	mock.OnGetPrices = func(ctx context.Context, token string, req *correios.PriceRequest) ([]correios.TariffRow, error) {
		return []correios.TariffRow{
			{CoProduto: "04014", PcFinal: "23,50", PrazoEntrega: "3", EntregaSabado: "N"},
		}, nil
	}

	req := &shipping.QuoteRequest{
		To:    &shipping.Address{Zip: "41000-000"},
		Items: []shipping.CartItem{{Price: 50, Quantity: 1, Weight: &shipping.Measure{Value: 500, Unit: "g"}}},
	}
	resp, err := svc.Quote(context.Background(), 1001, req, &shipping.Settings{Zip: "01310-100"})

	require.NoError(t, err)
	require.Len(t, resp.ShippingServices, 1)

	offer := resp.ShippingServices[0]
	assert.Equal(t, "SEDEX", offer.Label)
	assert.Equal(t, "SEDEX", offer.ServiceName)
	assert.Equal(t, 23.5, offer.ShippingLine.TotalPrice)
	assert.Equal(t, 3, offer.ShippingLine.DeliveryTime.Days)
	assert.True(t, offer.ShippingLine.DeliveryTime.WorkingDays)
}

func TestQuote_FreeShippingRule(t *testing.T) {
	mock := correios.NewMockAPIClient()
	store := newMemContractStore()
	seedContract(store, 1001)
	svc := newQuoteService(mock, store)

	settings := &shipping.Settings{
		Zip: "01310-100",
		ShippingRules: []shipping.ShippingRule{
			{FreeShipping: true, MinAmount: 80},
		},
	}

	req := quoteRequest()
	req.Subtotal = 100
	resp, err := svc.Quote(context.Background(), 1001, req, settings)

	require.NoError(t, err)
	require.NotNil(t, resp.FreeShippingFromValue)
	assert.Equal(t, 80.0, *resp.FreeShippingFromValue)

	require.Len(t, resp.ShippingServices, 2)
	for _, offer := range resp.ShippingServices {
		assert.Equal(t, 0.0, offer.ShippingLine.TotalPrice)
		assert.Equal(t, 23.5, offer.ShippingLine.Discount)
	}
}

func TestQuote_AdditionalPriceBeforeRules(t *testing.T) {
	mock := correios.NewMockAPIClient()
	store := newMemContractStore()
	seedContract(store, 1001)
	svc := newQuoteService(mock, store)

	settings := &shipping.Settings{
		Zip:             "01310-100",
		AdditionalPrice: 6.5,
		ShippingRules: []shipping.ShippingRule{
			{Discount: &shipping.RuleDiscount{Value: 50, Percentage: true}},
		},
	}

	req := quoteRequest()
	req.Subtotal = 100
	resp, err := svc.Quote(context.Background(), 1001, req, settings)

	require.NoError(t, err)
	require.NotEmpty(t, resp.ShippingServices)

	// 23,50 + 6,50 fee = 30,00; 50% discount on the fee-inclusive total.
	line := resp.ShippingServices[0].ShippingLine
	assert.Equal(t, 15.0, line.TotalPrice)
	assert.Equal(t, 15.0, line.Discount)
	require.Len(t, line.OtherAdditionals, 1)
	assert.Equal(t, 6.5, line.OtherAdditionals[0].Price)
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"23,50", 23.5},
		{"1.234,56", 1234.56},
		{"21,00", 21},
		{"0,00", 0},
		{"", 0},
		{"  18,30 ", 18.3},
		{"abc", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shipping.ParseMoney(tt.in), "input %q", tt.in)
	}
}
