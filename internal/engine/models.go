package engine

// Opportunity is a live flip candidate that passed every hard filter this
// cycle. Buy and Sell are the normalized sides: Buy is what a flip pays per
// unit, Sell is what it receives before the 1% exchange tax.
type Opportunity struct {
	ItemID      int     `json:"ItemID"`
	Name        string  `json:"Name"`
	Buy         int64   `json:"Buy"`
	Sell        int64   `json:"Sell"`
	Margin      int64   `json:"Margin"` // per unit, after tax
	MarginPct   float64 `json:"MarginPct"`
	TotalVolume int64   `json:"TotalVolume"` // buy side + sell side, trailing hour
	AgeSeconds  int64   `json:"AgeSeconds"`  // older of the two quote sides
	TradeLimit  int     `json:"TradeLimit"`
	MaxQty      int64   `json:"MaxQty"` // bounded by capital and trade limit

	PotentialProfit int64   `json:"PotentialProfit"` // Margin * MaxQty
	FlipsPerHour    float64 `json:"FlipsPerHour"`
	HourlyProfit    int64   `json:"HourlyProfit"`

	ProfitScore       float64 `json:"ProfitScore"`
	VolumeScore       float64 `json:"VolumeScore"`
	FreshnessScore    float64 `json:"FreshnessScore"`
	AggressiveScore   float64 `json:"AggressiveScore"`
	BalancedScore     float64 `json:"BalancedScore"`
	ConservativeScore float64 `json:"ConservativeScore"`
}

// StabilityMetrics is the full analysis of one item's trailing history
// window. Downstream classifiers re-price from live quotes, so the latest
// raw sample is exposed alongside the aggregates.
type StabilityMetrics struct {
	SampleCount    int   `json:"SampleCount"` // samples in the selected window
	DataAgeSeconds int64 `json:"DataAgeSeconds"`

	MeanBuy        int64   `json:"MeanBuy"`
	MeanSell       int64   `json:"MeanSell"`
	MeanVolume     float64 `json:"MeanVolume"`
	MeanMarginPct  float64 `json:"MeanMarginPct"`
	StdevMarginPct float64 `json:"StdevMarginPct"`

	PriceChangePct  float64 `json:"PriceChangePct"` // second half vs first half mean buy
	MarginChangePts float64 `json:"MarginChangePts"`
	PriceTrend      string  `json:"PriceTrend"`
	MarginTrend     string  `json:"MarginTrend"`

	FreshnessPenalty float64 `json:"FreshnessPenalty"`
	StabilityScore   float64 `json:"StabilityScore"`

	LatestBuy       int64   `json:"LatestBuy"`
	LatestSell      int64   `json:"LatestSell"`
	LatestMarginPct float64 `json:"LatestMarginPct"`
	LatestVolume    int64   `json:"LatestVolume"`
}

// StablePick is a history-qualified item re-priced at the current quote.
type StablePick struct {
	ItemID      int     `json:"ItemID"`
	Name        string  `json:"Name"`
	Buy         int64   `json:"Buy"`  // live, not the historical mean
	Sell        int64   `json:"Sell"` // live
	MeanBuy     int64   `json:"MeanBuy"`
	MeanSell    int64   `json:"MeanSell"`
	Margin      int64   `json:"Margin"`
	MarginPct   float64 `json:"MarginPct"` // from the live quote
	MeanMargin  float64 `json:"MeanMargin"`
	TotalVolume int64   `json:"TotalVolume"`
	AgeSeconds  int64   `json:"AgeSeconds"`
	MaxQty      int64   `json:"MaxQty"`

	PotentialProfit int64 `json:"PotentialProfit"`

	SampleCount    int     `json:"SampleCount"`
	StabilityScore float64 `json:"StabilityScore"`
	PriceTrend     string  `json:"PriceTrend"`
	MarginTrend    string  `json:"MarginTrend"`

	AggressiveScore   float64 `json:"AggressiveScore"`
	BalancedScore     float64 `json:"BalancedScore"`
	ConservativeScore float64 `json:"ConservativeScore"`
}

// HighTicketFlip is an expensive, rarely-traded item that cleared the
// relaxed high-ticket filters.
type HighTicketFlip struct {
	ItemID     int     `json:"ItemID"`
	Name       string  `json:"Name"`
	Buy        int64   `json:"Buy"`
	Sell       int64   `json:"Sell"`
	Profit     int64   `json:"Profit"` // per unit, after tax
	ROIPct     float64 `json:"ROIPct"`
	AgeSeconds int64   `json:"AgeSeconds"`
	MaxQty     int64   `json:"MaxQty"`
	TradeLimit int     `json:"TradeLimit"`

	CapitalLocked int64 `json:"CapitalLocked"` // Buy * MaxQty

	// TotalVolume is the reported trailing-hour count. VolumeKnown is false
	// when the feed had no entry for the item; VolumeInferred marks the
	// fresh-quote inference that at least one trade occurred.
	TotalVolume    int64 `json:"TotalVolume"`
	VolumeKnown    bool  `json:"VolumeKnown"`
	VolumeInferred bool  `json:"VolumeInferred"`

	RiskFactors []string `json:"RiskFactors"`
	RiskLabel   string   `json:"RiskLabel"`
	FlipScore   float64  `json:"FlipScore"`
}

// HighTicketRejection records why an above-threshold item was excluded.
// Nothing is dropped silently.
type HighTicketRejection struct {
	ItemID  int      `json:"ItemID"`
	Name    string   `json:"Name"`
	Sell    int64    `json:"Sell"` // normalized price that crossed the threshold
	Reasons []string `json:"Reasons"`
}

// NoQuoteItem is a low-limit catalog item with no market data at all this
// cycle, reported separately from rejections.
type NoQuoteItem struct {
	ItemID     int    `json:"ItemID"`
	Name       string `json:"Name"`
	TradeLimit int    `json:"TradeLimit"`
}

// HighTicketReport is the complete high-ticket pass for one cycle. A
// rejected item counts once in RejectedCount regardless of how many
// reasons it accumulated; RejectReasons counts every reason occurrence.
type HighTicketReport struct {
	Threshold      float64               `json:"Threshold"` // 75th percentile of normalized prices
	AboveThreshold int                   `json:"AboveThreshold"`
	Flips          []HighTicketFlip      `json:"Flips"`
	Rejected       []HighTicketRejection `json:"Rejected"`
	RejectedCount  int                   `json:"RejectedCount"`
	RejectReasons  map[string]int        `json:"RejectReasons"`
	NoData         []NoQuoteItem         `json:"NoData"`
}

// Mover is an item whose trailing window shows abnormal price, margin or
// volume movement.
type Mover struct {
	ItemID          int     `json:"ItemID"`
	Name            string  `json:"Name"`
	SampleCount     int     `json:"SampleCount"`
	PriceChangePct  float64 `json:"PriceChangePct"`
	MarginChangePts float64 `json:"MarginChangePts"`
	VolumeRatio     float64 `json:"VolumeRatio"` // latest sample vs window mean
	PriceTrend      string  `json:"PriceTrend"`
	MarginTrend     string  `json:"MarginTrend"`
	LatestBuy       int64   `json:"LatestBuy"`
	LatestSell      int64   `json:"LatestSell"`
	LatestMarginPct float64 `json:"LatestMarginPct"`
	Urgency         float64 `json:"Urgency"`
}
