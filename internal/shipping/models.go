// Package shipping implements the quote-computation pipeline: package
// aggregation, merchant rule evaluation and tariff normalization into
// storefront shipping-line offers.
package shipping

// Measure is a value with a measurement unit.
type Measure struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// ItemDimensions are the three sides of a cart item.
type ItemDimensions struct {
	Length *Measure `json:"length,omitempty"`
	Width  *Measure `json:"width,omitempty"`
	Height *Measure `json:"height,omitempty"`
}

// CartItem is one storefront cart entry. Immutable input.
type CartItem struct {
	Price      float64         `json:"price"`
	Quantity   int             `json:"quantity"`
	Weight     *Measure        `json:"weight,omitempty"`
	Dimensions *ItemDimensions `json:"dimensions,omitempty"`
}

// PackageDimensions are the aggregated package sides, always in cm.
type PackageDimensions struct {
	Length Measure `json:"length"`
	Width  Measure `json:"width"`
	Height Measure `json:"height"`
}

// Package is the single shippable box aggregated from the cart, weight in
// grams and sides in cm.
type Package struct {
	Weight     Measure           `json:"weight"`
	Dimensions PackageDimensions `json:"dimensions"`
}

// Address carries the zip of an origin or destination.
type Address struct {
	Zip string `json:"zip"`
}

// ZipRange restricts a rule to destination zips within [Min, Max]; a zero
// bound is open-ended.
type ZipRange struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

// RuleDiscount is a fixed or percentage shipping discount.
type RuleDiscount struct {
	Value      float64 `json:"value"`
	Percentage bool    `json:"percentage,omitempty"`
}

// ShippingRule is one merchant-configured free-shipping or discount rule.
type ShippingRule struct {
	ZipRange     *ZipRange     `json:"zip_range,omitempty"`
	ServiceCode  string        `json:"service_code,omitempty"`
	MinAmount    float64       `json:"min_amount,omitempty"`
	FreeShipping bool          `json:"free_shipping,omitempty"`
	Discount     *RuleDiscount `json:"discount,omitempty"`
}

// ServiceLabel maps a carrier service code to a merchant-chosen label.
type ServiceLabel struct {
	ServiceCode string `json:"service_code"`
	Label       string `json:"label,omitempty"`
}

// ContractCredentials are the carrier credentials a merchant configures on
// the app.
type ContractCredentials struct {
	Username       string `json:"username,omitempty"`
	AccessCode     string `json:"access_code,omitempty"`
	PostCardNumber string `json:"post_card_number,omitempty"`
}

// PostingDeadline is the merchant's handling time before posting.
type PostingDeadline struct {
	Days int `json:"days"`
}

// Settings are the merchant-configured app options read from the app-data
// document store.
type Settings struct {
	Zip                   string               `json:"zip,omitempty"`
	FreeShippingFromValue *float64             `json:"free_shipping_from_value,omitempty"`
	Services              []ServiceLabel       `json:"services,omitempty"`
	ShippingRules         []ShippingRule       `json:"shipping_rules,omitempty"`
	UseBiggerBox          bool                 `json:"use_bigger_box,omitempty"`
	NoDeclareValue        bool                 `json:"no_declare_value,omitempty"`
	AdditionalPrice       float64              `json:"additional_price,omitempty"`
	PostingDeadline       *PostingDeadline     `json:"posting_deadline,omitempty"`
	IgnoreTriggers        []string             `json:"ignore_triggers,omitempty"`
	CorreiosContract      *ContractCredentials `json:"correios_contract,omitempty"`
}

// QuoteRequest is the storefront calculate-shipping request.
type QuoteRequest struct {
	To          *Address   `json:"to,omitempty"`
	From        *Address   `json:"from,omitempty"`
	Items       []CartItem `json:"items,omitempty"`
	Subtotal    float64    `json:"subtotal,omitempty"`
	ServiceCode string     `json:"service_code,omitempty"`
	OwnHand     bool       `json:"own_hand,omitempty"`
	Receipt     bool       `json:"receipt,omitempty"`
}

// DeliveryTime is the carrier's delivery estimate.
type DeliveryTime struct {
	Days        int  `json:"days"`
	WorkingDays bool `json:"working_days"`
}

// Additional is an extra fee line appended to a shipping line.
type Additional struct {
	Tag   string  `json:"tag"`
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// ShippingLine is the priced shipping option for the aggregated package.
type ShippingLine struct {
	From               *Address          `json:"from,omitempty"`
	To                 *Address          `json:"to,omitempty"`
	Package            *Package          `json:"package,omitempty"`
	Price              float64           `json:"price"`
	DeclaredValue      float64           `json:"declared_value"`
	DeclaredValuePrice float64           `json:"declared_value_price"`
	OwnHand            bool              `json:"own_hand"`
	Receipt            bool              `json:"receipt"`
	Discount           float64           `json:"discount"`
	TotalPrice         float64           `json:"total_price"`
	DeliveryTime       DeliveryTime      `json:"delivery_time"`
	PostingDeadline    PostingDeadline   `json:"posting_deadline"`
	OtherAdditionals   []Additional      `json:"other_additionals,omitempty"`
	Flags              []string          `json:"flags"`
}

// ShippingService is one normalized shipping-line offer.
type ShippingService struct {
	Label            string       `json:"label"`
	Carrier          string       `json:"carrier"`
	CarrierDocNumber string       `json:"carrier_doc_number"`
	ServiceCode      string       `json:"service_code"`
	ServiceName      string       `json:"service_name"`
	ShippingLine     ShippingLine `json:"shipping_line"`
}

// QuoteResponse is the calculate-shipping response envelope.
type QuoteResponse struct {
	ShippingServices      []ShippingService `json:"shipping_services"`
	FreeShippingFromValue *float64          `json:"free_shipping_from_value,omitempty"`
}
