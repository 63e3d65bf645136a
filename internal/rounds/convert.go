package rounds

import "github.com/shopspring/decimal"

// Valued carries a round with raw amounts rescaled to token units and,
// when a price was available, a fiat PnL. A nil PnLUSD means the price
// lookup had no answer; it is never substituted with zero.
type Valued struct {
	Round

	BuyTokens  decimal.Decimal
	SellTokens decimal.Decimal
	PnLTokens  decimal.Decimal
	PnLUSD     *decimal.Decimal
}

// Value rescales rounds by the token's decimals and applies an optional
// USD price. Conversion is a post-processing step; the state machine
// itself only ever sees raw integer units.
func Value(rs []Round, decimals int, priceUSD *decimal.Decimal) []Valued {
	exp := int32(-decimals)
	out := make([]Valued, 0, len(rs))
	for _, r := range rs {
		v := Valued{
			Round:      r,
			BuyTokens:  decimal.New(r.BuyRaw, exp),
			SellTokens: decimal.New(r.SellRaw, exp),
			PnLTokens:  decimal.New(r.RealizedPnLRaw, exp),
		}
		if priceUSD != nil {
			usd := v.PnLTokens.Mul(*priceUSD)
			v.PnLUSD = &usd
		}
		out = append(out, v)
	}
	return out
}
