package ecb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"
	xhttp "BTCWatch/pkg/http"
	xlogger "BTCWatch/pkg/logger"
	"BTCWatch/pkg/util"
)

const source = "ecb_rates"

// Config holds ECB client settings.
type Config struct {
	BaseURL string
	Flow    string // dataflow id, normally EXR
	Pivot   string // the one currency all published rates are against
	Timeout time.Duration
}

// Client queries the SDMX-JSON FX source. Implements RateSource. Published
// values are "currency per 1 pivot unit" and need no inversion; rates only
// exist for business days, so short ranges can legitimately be empty.
type Client struct {
	http    *xhttp.Client
	baseURL string
	flow    string
	pivot   string
	logger  *xlogger.Logger
	metrics drepo.Metrics
}

// New creates a new ECB client.
func New(cfg Config, logger *xlogger.Logger, metrics drepo.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	flow := cfg.Flow
	if flow == "" {
		flow = "EXR"
	}
	return &Client{
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		baseURL: cfg.BaseURL,
		flow:    flow,
		pivot:   cfg.Pivot,
		logger:  logger,
		metrics: metrics,
	}
}

// Pivot returns the pivot currency code.
func (c *Client) Pivot() string { return c.pivot }

// SDMX-JSON response shape, validated at the boundary. Observation values may
// contain nulls.
type sdmxResponse struct {
	DataSets []struct {
		Series map[string]sdmxSeries `json:"series"`
	} `json:"dataSets"`
	Structure struct {
		Dimensions struct {
			Observation []struct {
				ID     string `json:"id"`
				Values []struct {
					ID string `json:"id"`
				} `json:"values"`
			} `json:"observation"`
		} `json:"dimensions"`
	} `json:"structure"`
}

type sdmxSeries struct {
	Observations map[string][]*float64 `json:"observations"`
}

// PivotRates fetches daily spot observations for currency over rng, ordered
// oldest to newest by the series' own period index. An empty slice means the
// range had no published data; it is not a transport failure.
func (c *Client) PivotRates(ctx context.Context, currency string, rng models.DateRange) ([]models.RateObservation, error) {
	// series key: frequency.currency.pivot.spot-indicator.average-indicator
	url := fmt.Sprintf("%s/service/data/%s/D.%s.%s.SP00.A", c.baseURL, c.flow, currency, c.pivot)
	params := map[string][]string{
		"format": {"jsondata"},
	}
	if rng.IsZero() {
		params["lastNObservations"] = []string{"1"}
	} else {
		params["startPeriod"] = []string{util.FormatDate(rng.Start)}
		params["endPeriod"] = []string{util.FormatDate(rng.End)}
	}

	c.logger.Debug("fx fetch",
		xlogger.String("currency", currency),
		xlogger.Bool("latest", rng.IsZero()),
	)

	var resp sdmxResponse
	start := time.Now()
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         url,
		QueryParams: params,
	}, &resp)
	c.metrics.RecordLatency(source, time.Since(start).Seconds())

	if err != nil {
		var statusErr *xhttp.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			// missing series means "no data for range"
			c.metrics.RecordFetch(source, "empty")
			return nil, nil
		}

		var decodeErr *xhttp.DecodeError
		if errors.As(err, &decodeErr) {
			c.metrics.RecordFetch(source, "malformed")
			c.logger.Error("fx response malformed", xlogger.String("currency", currency), xlogger.Error(err))
			return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
		}

		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		c.metrics.RecordFetch(source, outcome)
		c.logger.Error("fx fetch failed", xlogger.String("currency", currency), xlogger.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}

	obs := extractObservations(&resp)
	if len(obs) == 0 {
		c.metrics.RecordFetch(source, "empty")
		return nil, nil
	}

	c.metrics.RecordFetch(source, "success")
	return obs, nil
}

// extractObservations flattens the first dataset's series into observations
// ordered by ascending period index, the series' own date ordering.
func extractObservations(resp *sdmxResponse) []models.RateObservation {
	if len(resp.DataSets) == 0 {
		return nil
	}

	var periods []string
	for _, dim := range resp.Structure.Dimensions.Observation {
		if dim.ID == "TIME_PERIOD" || len(periods) == 0 {
			periods = make([]string, len(dim.Values))
			for i, v := range dim.Values {
				periods[i] = v.ID
			}
		}
	}

	type indexed struct {
		idx int
		val float64
	}
	var flat []indexed
	for _, series := range resp.DataSets[0].Series {
		for key, vals := range series.Observations {
			idx, err := strconv.Atoi(key)
			if err != nil || len(vals) == 0 || vals[0] == nil {
				continue
			}
			flat = append(flat, indexed{idx: idx, val: *vals[0]})
		}
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].idx < flat[j].idx })

	out := make([]models.RateObservation, 0, len(flat))
	for _, o := range flat {
		period := ""
		if o.idx >= 0 && o.idx < len(periods) {
			period = periods[o.idx]
		}
		out = append(out, models.RateObservation{Period: period, Value: o.val})
	}
	return out
}
