package eod

// Record is one end-of-day bar for one symbol on one exchange.
//
// Volume is a whole share count even though the provider transmits it as a
// JSON number with a fractional part. SplitFactor is 1 and Dividend is 0 on
// days without a corporate action.
type Record struct {
	Symbol      string  `json:"symbol"`
	Exchange    string  `json:"exchange"`
	Date        Date    `json:"date"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      int64   `json:"volume"`
	SplitFactor float64 `json:"split_factor"`
	Dividend    float64 `json:"dividend"`
}
