package shipping

import "strconv"

// zipMatches reports whether a rule applies to the destination zip. A rule
// without a zip range has no restriction; range bounds are open-ended when
// zero. A zero zip (no destination known) matches everything.
func zipMatches(rule ShippingRule, zip int) bool {
	if zip == 0 || rule.ZipRange == nil {
		return true
	}
	r := rule.ZipRange
	return (r.Min == 0 || zip >= r.Min) && (r.Max == 0 || zip <= r.Max)
}

// parseZip converts a digits-only zip string to its numeric form for range
// checks; malformed zips compare as zero (unrestricted).
func parseZip(zip string) int {
	n, err := strconv.Atoi(digitsOnly(zip))
	if err != nil {
		return 0
	}
	return n
}

// FreeShippingThreshold runs the response-level free-shipping pre-scan over
// the rules in declaration order. A zip-matching free-shipping rule without
// a minimum amount pins the threshold at 0 and stops the scan; otherwise
// each matching rule lowers the threshold to its minimum amount. current is
// the merchant's configured default threshold, nil when unset.
func FreeShippingThreshold(rules []ShippingRule, zip int, current *float64) *float64 {
	threshold := current
	for _, rule := range rules {
		if !rule.FreeShipping || !zipMatches(rule, zip) {
			continue
		}
		if rule.MinAmount == 0 {
			zero := 0.0
			return &zero
		}
		if threshold == nil || *threshold > rule.MinAmount {
			min := rule.MinAmount
			threshold = &min
		}
	}
	return threshold
}

// ApplyAdditionalPrice folds the merchant's flat additional price into the
// line: positive values append a separate fee line, negative ones become
// discount. Either way the amount is added to the total.
func (l *ShippingLine) ApplyAdditionalPrice(price float64) {
	if price == 0 {
		return
	}
	if price > 0 {
		l.OtherAdditionals = append(l.OtherAdditionals, Additional{
			Tag:   "additional_price",
			Label: "Adicional padrão",
			Price: price,
		})
	} else {
		l.Discount -= price
	}
	l.TotalPrice += price
}

// ApplyRules evaluates the discount rules against the line in declaration
// order. The first rule matching zip, service code and minimum amount wins
// and stops the scan. Percentage discounts compute against the current
// total, and the total never drops below zero.
func (l *ShippingLine) ApplyRules(rules []ShippingRule, zip int, serviceCode string, subtotal float64) {
	for _, rule := range rules {
		if rule.ServiceCode != "" && rule.ServiceCode != serviceCode {
			continue
		}
		if !zipMatches(rule, zip) || rule.MinAmount > subtotal {
			continue
		}

		if rule.FreeShipping {
			l.Discount += l.TotalPrice
			l.TotalPrice = 0
			return
		}
		if rule.Discount != nil {
			value := rule.Discount.Value
			if rule.Discount.Percentage {
				value *= l.TotalPrice / 100
			}
			if value != 0 {
				l.Discount += value
				l.TotalPrice -= value
				if l.TotalPrice < 0 {
					l.TotalPrice = 0
				}
			}
			return
		}
	}
}
