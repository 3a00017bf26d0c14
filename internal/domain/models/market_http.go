package models

// Requests and responses for the market HTTP endpoints. Defined in domain for
// consistency and reuse.

type SpotRequest struct {
	Currency string `query:"currency" json:"currency" default:"USD" validate:"len=3,alpha"`
}

type CandlesRequest struct {
	Window   string `query:"window" json:"window" default:"24h" validate:"oneof=1h 24h 7d 30d 1y"`
	Currency string `query:"currency" json:"currency" default:"USD" validate:"len=3,alpha"`
}

type CandlesResponse struct {
	Window   string   `json:"window"`
	Currency string   `json:"currency"`
	Count    int      `json:"count"`
	Candles  []Candle `json:"candles"`
}

type CurrenciesResponse struct {
	Count      int            `json:"count"`
	Currencies []CurrencyInfo `json:"currencies"`
}
