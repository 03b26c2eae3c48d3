package shipping

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/storelink/correios-bridge/internal/telemetry"
	"github.com/storelink/correios-bridge/pkg/correios"
)

const (
	carrierName      = "Correios"
	carrierDocNumber = "34704060000107"

	defaultPostingDeadlineDays = 3
)

// Additional-service codes on the Correios pricing API.
const (
	serviceOwnHand = "002"
	serviceReceipt = "001"
)

// defaultServiceCodes is the catalog pair quoted when neither the request
// nor the merchant configuration names service codes.
var defaultServiceCodes = []string{"03220", "03298"}

// Sentinel errors surfaced to the quote endpoint.
var (
	// ErrMissingOriginZip indicates the merchant never configured an
	// origin zip and the request carried none.
	ErrMissingOriginZip = errors.New("origin zip is unset on merchant configuration")

	// ErrEmptyCart indicates the request carried no cart items.
	ErrEmptyCart = errors.New("cannot calculate shipping without cart items")
)

// QuoteService runs the quote-computation pipeline against the carrier.
type QuoteService struct {
	manager *correios.Manager
	api     correios.APIClient
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
}

// NewQuoteService creates a quote service.
func NewQuoteService(manager *correios.Manager, api correios.APIClient, logger *otelzap.Logger, metrics *telemetry.Metrics) *QuoteService {
	return &QuoteService{
		manager: manager,
		api:     api,
		logger:  logger,
		metrics: metrics,
	}
}

// Quote aggregates the cart into a package, fetches carrier tariffs and
// returns the normalized offers. A request without a destination zip gets
// only the free-shipping preview and no carrier call is made.
func (s *QuoteService) Quote(ctx context.Context, storeID int64, req *QuoteRequest, settings *Settings) (*QuoteResponse, error) {
	start := time.Now()

	resp := &QuoteResponse{ShippingServices: []ShippingService{}}
	if settings.FreeShippingFromValue != nil && *settings.FreeShippingFromValue >= 0 {
		resp.FreeShippingFromValue = settings.FreeShippingFromValue
	}
	if req.To == nil || digitsOnly(req.To.Zip) == "" {
		return resp, nil
	}

	cepDestino := digitsOnly(req.To.Zip)
	cepOrigem := ""
	if req.From != nil {
		cepOrigem = digitsOnly(req.From.Zip)
	}
	if cepOrigem == "" {
		cepOrigem = digitsOnly(settings.Zip)
	}
	if cepOrigem == "" {
		return nil, ErrMissingOriginZip
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	destZip := parseZip(cepDestino)
	resp.FreeShippingFromValue = FreeShippingThreshold(settings.ShippingRules, destZip, resp.FreeShippingFromValue)

	serviceCodes := s.resolveServiceCodes(req, settings)
	declared := DeclaredValue(req.Items, req.Subtotal, settings.NoDeclareValue)
	pkg := BuildPackage(req.Items, PackingPolicy{UseBiggerBox: settings.UseBiggerBox})

	var additionalServices []string
	if req.OwnHand {
		additionalServices = append(additionalServices, serviceOwnHand)
	}
	if req.Receipt {
		additionalServices = append(additionalServices, serviceReceipt)
	}

	session, err := s.manager.Session(ctx, storeID, nil)
	if err != nil {
		s.metrics.RecordCarrierError("token")
		s.metrics.RecordQuote("error", time.Since(start).Seconds())
		return nil, err
	}

	priceReq := buildPriceRequest(session.Contract, serviceCodes, cepOrigem, cepDestino, pkg, declared, additionalServices)
	rows, err := s.api.GetPrices(ctx, session.Token, priceReq)
	if err != nil {
		s.logger.Error("Correios price request failed",
			zap.Int64("store_id", storeID),
			zap.Error(err),
		)
		s.metrics.RecordCarrierError("price")
		s.metrics.RecordQuote("error", time.Since(start).Seconds())
		return nil, err
	}

	for _, row := range rows {
		offer, ok := s.normalizeRow(row, req, settings, &pkg, cepOrigem, destZip, declared, storeID)
		if ok {
			resp.ShippingServices = append(resp.ShippingServices, offer)
		}
	}

	s.metrics.RecordQuote("success", time.Since(start).Seconds())
	return resp, nil
}

// resolveServiceCodes picks the service codes to quote: request override,
// then merchant configuration, then the catalog default.
func (s *QuoteService) resolveServiceCodes(req *QuoteRequest, settings *Settings) []string {
	if req.ServiceCode != "" {
		return []string{req.ServiceCode}
	}
	var codes []string
	for _, svc := range settings.Services {
		if svc.ServiceCode != "" {
			codes = append(codes, svc.ServiceCode)
		}
	}
	if len(codes) > 0 {
		return codes
	}
	return defaultServiceCodes
}

// buildPriceRequest assembles the carrier pricing request, one product
// entry per service code.
func buildPriceRequest(contract *correios.Contract, codes []string, cepOrigem, cepDestino string, pkg Package, declared float64, additionalServices []string) *correios.PriceRequest {
	req := &correios.PriceRequest{
		BatchID:  uuid.NewString(),
		Products: make([]correios.PriceProduct, 0, len(codes)),
	}
	for i, code := range codes {
		req.Products = append(req.Products, correios.PriceProduct{
			CoProduto:          code,
			NuRequisicao:       i + 1,
			CepOrigem:          cepOrigem,
			CepDestino:         cepDestino,
			PsObjeto:           pkg.Weight.Value,
			Comprimento:        pkg.Dimensions.Length.Value,
			Altura:             pkg.Dimensions.Height.Value,
			Largura:            pkg.Dimensions.Width.Value,
			VlDeclarado:        declared,
			ServicosAdicionais: additionalServices,
			NuContrato:         contract.NuContrato,
			NuDR:               contract.NuDR,
		})
	}
	return req
}

// normalizeRow maps one tariff row into a shipping-line offer. Rows with a
// carrier error are logged; rows without a final price or a valid delivery
// estimate are dropped without failing the quote.
func (s *QuoteService) normalizeRow(row correios.TariffRow, req *QuoteRequest, settings *Settings, pkg *Package, cepOrigem string, destZip int, declared float64, storeID int64) (ShippingService, bool) {
	if row.TxErro != "" || row.CoErro != "" {
		s.logger.Warn("Tariff row carries carrier error",
			zap.Int64("store_id", storeID),
			zap.String("co_produto", row.CoProduto),
			zap.String("co_erro", row.CoErro),
			zap.String("tx_erro", row.TxErro),
			zap.String("pc_final", row.PcFinal),
			zap.String("prazo_entrega", row.PrazoEntrega),
		)
	}

	if row.PcFinal == "" {
		s.metrics.RecordDroppedRow("no_final_price")
		return ShippingService{}, false
	}
	days, err := strconv.Atoi(strings.TrimSpace(row.PrazoEntrega))
	if err != nil || days < 0 {
		s.metrics.RecordDroppedRow("invalid_delivery_days")
		return ShippingService{}, false
	}

	serviceName := canonicalServiceName(row.CoProduto)
	label := serviceName
	if label == "" {
		label = "Correios " + row.CoProduto
	}
	// Merchant-configured label wins; last matching entry on duplicates.
	for _, svc := range settings.Services {
		if svc.ServiceCode == row.CoProduto && svc.Label != "" {
			label = svc.Label
		}
	}

	price := row.PcProduto
	if price == "" {
		price = row.PcFinal
	}

	line := ShippingLine{
		From:       &Address{Zip: cepOrigem},
		To:         req.To,
		Package:    pkg,
		Price:      ParseMoney(price),
		OwnHand:    req.OwnHand,
		Receipt:    req.Receipt,
		TotalPrice: ParseMoney(row.PcFinal),
		DeliveryTime: DeliveryTime{
			Days:        days,
			WorkingDays: row.EntregaSabado != "S",
		},
		PostingDeadline: PostingDeadline{Days: defaultPostingDeadlineDays},
		Flags:           []string{"correios-api"},
	}
	if settings.PostingDeadline != nil {
		line.PostingDeadline = *settings.PostingDeadline
	}
	if row.PcTotalServicosAdicionais != "" {
		line.DeclaredValue = declared
		line.DeclaredValuePrice = ParseMoney(row.PcTotalServicosAdicionais)
	}

	line.ApplyAdditionalPrice(settings.AdditionalPrice)
	line.ApplyRules(settings.ShippingRules, destZip, row.CoProduto, req.Subtotal)

	if serviceName == "" {
		serviceName = label
	}
	return ShippingService{
		Label:            label,
		Carrier:          carrierName,
		CarrierDocNumber: carrierDocNumber,
		ServiceCode:      row.CoProduto,
		ServiceName:      serviceName,
		ShippingLine:     line,
	}, true
}

// canonicalServiceName maps known Correios product codes to their product
// family; unmapped codes return "".
func canonicalServiceName(code string) string {
	switch code {
	case "04014", "03220", "03204":
		return "SEDEX"
	case "04510", "03298":
		return "PAC"
	default:
		return ""
	}
}

// ParseMoney parses a Correios decimal-comma money string ("1.234,56").
// Empty and malformed strings parse to zero.
func ParseMoney(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
