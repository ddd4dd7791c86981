package wiki

import "fmt"

// TimeseriesPoint is one bucket of an item's price history.
type TimeseriesPoint struct {
	Timestamp    int64 `json:"timestamp"`
	AvgHighPrice int64 `json:"avgHighPrice"`
	AvgLowPrice  int64 `json:"avgLowPrice"`
}

type timeseriesResponse struct {
	Data []TimeseriesPoint `json:"data"`
}

// Timeseries fetches an item's bucketed price history. timestep is one of
// the feed's supported buckets ("5m", "1h", "6h", "24h").
func (c *Client) Timeseries(itemID int, timestep string) ([]TimeseriesPoint, error) {
	if timestep == "" {
		timestep = "5m"
	}
	url := fmt.Sprintf("%s/timeseries?timestep=%s&id=%d", c.base, timestep, itemID)
	var resp timeseriesResponse
	if err := c.getJSON(url, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
