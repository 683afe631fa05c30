package pricing

import "github.com/shopspring/decimal"

// East Malaysia gets the higher domestic rate:
// MY-12 = Sabah, MY-13 = Sarawak, MY-15 = Labuan.
var eastMalaysia = map[string]bool{
	"MY-12": true,
	"MY-13": true,
	"MY-15": true,
}

// Flat fees for supported foreign destinations, in sen.
var foreignFees = map[string]int64{
	"SG": 4000,
	"BN": 7000,
	"ID": 11000,
}

const (
	eastMalaysiaFee = 900
	westMalaysiaFee = 700
)

// ShippingFee returns the flat shipping fee in sen for the destination.
// A cart where no item requires shipping ships free regardless of
// destination, and so does any country outside the table.
func ShippingFee(country, province string, requiresShipping bool) decimal.Decimal {
	if !requiresShipping {
		return decimal.Zero
	}
	if country == "MY" {
		if eastMalaysia[province] {
			return decimal.NewFromInt(eastMalaysiaFee)
		}
		return decimal.NewFromInt(westMalaysiaFee)
	}
	return decimal.NewFromInt(foreignFees[country])
}
