package wiki

import "strconv"

// Quote is one item's latest instant prices. The feed's high/low naming is
// not guaranteed buy/sell ordered; callers normalize before computing
// margins. A zero price means the side has never traded.
type Quote struct {
	High     int64 `json:"high"`
	HighTime int64 `json:"highTime"`
	Low      int64 `json:"low"`
	LowTime  int64 `json:"lowTime"`
}

// VolumeQuote is one item's trailing-hour traded units per side.
// Absence of an item from the volume map means the feed had no data for
// it, which is not the same thing as a reported zero.
type VolumeQuote struct {
	AvgHighPrice    int64 `json:"avgHighPrice"`
	HighPriceVolume int64 `json:"highPriceVolume"`
	AvgLowPrice     int64 `json:"avgLowPrice"`
	LowPriceVolume  int64 `json:"lowPriceVolume"`
}

type latestResponse struct {
	Data map[string]Quote `json:"data"`
}

type hourResponse struct {
	Data map[string]VolumeQuote `json:"data"`
}

// Latest fetches the current instant-buy/instant-sell snapshot for every
// item. Items with unparsable keys are skipped.
func (c *Client) Latest() (map[int]Quote, error) {
	var resp latestResponse
	if err := c.getJSON(c.base+"/latest", &resp); err != nil {
		return nil, err
	}
	quotes := make(map[int]Quote, len(resp.Data))
	for key, q := range resp.Data {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		quotes[id] = q
	}
	return quotes, nil
}

// HourVolumes fetches the trailing one-hour per-side trade volumes.
func (c *Client) HourVolumes() (map[int]VolumeQuote, error) {
	var resp hourResponse
	if err := c.getJSON(c.base+"/1h", &resp); err != nil {
		return nil, err
	}
	volumes := make(map[int]VolumeQuote, len(resp.Data))
	for key, v := range resp.Data {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		volumes[id] = v
	}
	return volumes, nil
}
