// Package climate summarizes a year of daily Open-Meteo archive data into
// monthly means for a site.
package climate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/JaimeStill/citygarden/pkg/retry"
)

const dailyFields = "temperature_2m_mean,precipitation_sum,wind_speed_10m_max"

var (
	// ErrUpstream indicates the archive API could not be reached or failed.
	ErrUpstream = errors.New("climate service error")
	// ErrInvalidResponse indicates the archive payload could not be used.
	ErrInvalidResponse = errors.New("invalid climate response")
)

// Month holds the means of one calendar month. Days with missing readings
// are excluded from each mean independently.
type Month struct {
	Month         time.Month `json:"month"`
	Temperature   float64    `json:"temperature_mean_c"`
	Precipitation float64    `json:"precipitation_mean_mm"`
	WindSpeed     float64    `json:"wind_speed_max_mean_kmh"`
}

// Summary is a monthly climate profile for a site.
type Summary struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Year      int     `json:"year"`
	Months    []Month `json:"months"`
}

// String renders the summary as prompt-ready text.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Monthly climate for %.2f, %.2f in %d:\n", s.Latitude, s.Longitude, s.Year)
	for _, m := range s.Months {
		fmt.Fprintf(&b, "- %s: mean temperature %.1f°C, mean daily precipitation %.1f mm, mean daily max wind %.1f km/h\n",
			m.Month, m.Temperature, m.Precipitation, m.WindSpeed)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Client fetches and caches climate summaries.
type Client struct {
	http   *http.Client
	cfg    Config
	cache  *expirable.LRU[string, *Summary]
	logger *slog.Logger
}

// New creates a Client from a finalized Config.
func New(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: cfg.TimeoutDuration()},
		cfg:    *cfg,
		cache:  expirable.NewLRU[string, *Summary](cfg.CacheSize, nil, cfg.CacheTTLDuration()),
		logger: logger.With("system", "climate"),
	}
}

// Enabled reports whether lookups are configured.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// Summary returns the monthly profile for the site. Coordinates are rounded
// to two decimals (about 1 km) for caching.
func (c *Client) Summary(ctx context.Context, latitude, longitude float64) (*Summary, error) {
	key := fmt.Sprintf("%.2f,%.2f", latitude, longitude)
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}

	daily, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (*dailyResponse, error) {
		return c.fetch(ctx, latitude, longitude)
	})
	if err != nil {
		return nil, err
	}

	s, err := summarize(daily)
	if err != nil {
		return nil, err
	}
	s.Latitude, s.Longitude, s.Year = latitude, longitude, c.cfg.Year

	c.cache.Add(key, s)
	c.logger.DebugContext(ctx, "climate summary cached", "key", key, "months", len(s.Months))
	return s, nil
}

type dailyResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		Temperature   []*float64 `json:"temperature_2m_mean"`
		Precipitation []*float64 `json:"precipitation_sum"`
		WindSpeed     []*float64 `json:"wind_speed_10m_max"`
	} `json:"daily"`
}

func (c *Client) fetch(ctx context.Context, latitude, longitude float64) (*dailyResponse, error) {
	params := url.Values{
		"latitude":   {strconv.FormatFloat(latitude, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(longitude, 'f', 4, 64)},
		"start_date": {fmt.Sprintf("%d-01-01", c.cfg.Year)},
		"end_date":   {fmt.Sprintf("%d-12-31", c.cfg.Year)},
		"daily":      {dailyFields},
		"timezone":   {c.cfg.Timezone},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, &retry.StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		})
	}

	var out dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &out, nil
}

type accumulator struct {
	sum   float64
	count int
}

func (a *accumulator) add(v *float64) {
	if v != nil {
		a.sum += *v
		a.count++
	}
}

func (a accumulator) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

func summarize(r *dailyResponse) (*Summary, error) {
	d := r.Daily
	n := len(d.Time)
	if n == 0 {
		return nil, fmt.Errorf("%w: no daily data", ErrInvalidResponse)
	}
	if len(d.Temperature) != n || len(d.Precipitation) != n || len(d.WindSpeed) != n {
		return nil, fmt.Errorf("%w: daily series lengths differ", ErrInvalidResponse)
	}

	type bucket struct{ temp, precip, wind accumulator }
	var buckets [12]bucket
	var seen [12]bool

	for i, day := range d.Time {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q: %w", ErrInvalidResponse, day, err)
		}
		idx := int(date.Month()) - 1
		seen[idx] = true
		buckets[idx].temp.add(d.Temperature[i])
		buckets[idx].precip.add(d.Precipitation[i])
		buckets[idx].wind.add(d.WindSpeed[i])
	}

	s := &Summary{}
	for i, b := range buckets {
		if !seen[i] {
			continue
		}
		s.Months = append(s.Months, Month{
			Month:         time.Month(i + 1),
			Temperature:   b.temp.mean(),
			Precipitation: b.precip.mean(),
			WindSpeed:     b.wind.mean(),
		})
	}
	return s, nil
}
