package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/httputil"
	"github.com/wonny/folio/backend/pkg/logger"
)

const stooqSource = "stooq"

// StooqProvider fetches daily close prices from the Stooq CSV endpoint.
// Stooq serves both equities (aapl.us) and FX pairs (eurusd) through the
// same interface.
type StooqProvider struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewStooqProvider creates a new Stooq CSV provider
func NewStooqProvider(httpClient *httputil.Client, baseURL string, log *logger.Logger) *StooqProvider {
	if baseURL == "" {
		baseURL = "https://stooq.com"
	}
	return &StooqProvider{
		httpClient: httpClient,
		logger:     log.WithComponent("stooq"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FetchDailyPrices fetches the daily close series for a symbol.
// The response is CSV with a Date,Open,High,Low,Close[,Volume] header.
func (p *StooqProvider) FetchDailyPrices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error) {
	fullURL := fmt.Sprintf("%s/q/d/l/?s=%s&d1=%s&d2=%s&i=d",
		p.baseURL,
		strings.ToLower(symbol),
		from.Format("20060102"),
		to.Format("20060102"),
	)

	resp, err := p.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	points, err := p.parseCSV(resp.Body, symbol)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(points),
	}).Debug("Fetched daily prices")
	return points, nil
}

// FetchRate fetches the latest close for an FX pair symbol such as "eurusd"
func (p *StooqProvider) FetchRate(ctx context.Context, from, to string) (float64, time.Time, error) {
	pair := strings.ToLower(from + to)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -7) // weekends and holidays have no row

	points, err := p.FetchDailyPrices(ctx, pair, start, end)
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(points) == 0 {
		return 0, time.Time{}, fmt.Errorf("%w: %s/%s", contracts.ErrRateUnavailable, from, to)
	}

	last := points[len(points)-1]
	return last.Price, last.Timestamp, nil
}

// parseCSV reads the Stooq daily CSV body. Rows with unparseable dates or
// non-positive closes are skipped; "No data" bodies yield an empty series.
func (p *StooqProvider) parseCSV(body io.Reader, symbol string) ([]contracts.PricePoint, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	var points []contracts.PricePoint
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if i == 0 || len(record) < 5 {
			continue // header or short row
		}

		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(record[4], 64)
		if err != nil || closePrice <= 0 {
			continue
		}

		points = append(points, contracts.PricePoint{
			Symbol:    symbol,
			Timestamp: date,
			Price:     closePrice,
			Currency:  "USD",
			Source:    stooqSource,
		})
	}
	return points, nil
}
