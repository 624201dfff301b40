package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/httputil"
	"github.com/wonny/folio/backend/pkg/logger"
)

const scrapeSource = "scrape"

// ScrapeProvider extracts prices from HTML quote pages. It is the
// fallback when the CSV endpoint has no data for a symbol.
//
// Expected markup: the latest price in an element with class
// "quote-price" carrying a data-currency attribute, and daily history
// rows in "table.price-history" with date and close columns.
type ScrapeProvider struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewScrapeProvider creates a new HTML scrape provider
func NewScrapeProvider(httpClient *httputil.Client, baseURL string, log *logger.Logger) *ScrapeProvider {
	return &ScrapeProvider{
		httpClient: httpClient,
		logger:     log.WithComponent("scrape"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FetchQuote fetches and parses the latest price for a symbol
func (p *ScrapeProvider) FetchQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	doc, err := p.fetchDocument(ctx, fmt.Sprintf("%s/quote/%s", p.baseURL, symbol))
	if err != nil {
		return nil, err
	}

	node := doc.Find(".quote-price").First()
	price, err := parsePriceText(node.Text())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", contracts.ErrPriceUnavailable, symbol)
	}

	currency := node.AttrOr("data-currency", "USD")

	p.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"price":  price,
	}).Debug("Scraped quote")

	return &contracts.Quote{
		Symbol:   symbol,
		Price:    price,
		Currency: currency,
		AsOf:     time.Now().UTC(),
	}, nil
}

// FetchDailyPrices fetches and parses the daily history table for a symbol
func (p *ScrapeProvider) FetchDailyPrices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error) {
	doc, err := p.fetchDocument(ctx, fmt.Sprintf("%s/quote/%s/history", p.baseURL, symbol))
	if err != nil {
		return nil, err
	}

	var points []contracts.PricePoint
	doc.Find("table.price-history tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil {
			return
		}
		if date.Before(from) || date.After(to) {
			return
		}

		price, err := parsePriceText(cells.Eq(1).Text())
		if err != nil {
			return
		}

		points = append(points, contracts.PricePoint{
			Symbol:    symbol,
			Timestamp: date,
			Price:     price,
			Currency:  cells.Eq(1).AttrOr("data-currency", "USD"),
			Source:    scrapeSource,
		})
	})

	// Table rows come newest-first; callers expect ascending
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	p.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(points),
	}).Debug("Scraped daily prices")
	return points, nil
}

func (p *ScrapeProvider) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := p.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}
	return doc, nil
}

// parsePriceText strips thousands separators and currency glyphs before
// parsing
func parsePriceText(text string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(text))

	if cleaned == "" {
		return 0, fmt.Errorf("no numeric content in %q", text)
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive price %f", price)
	}
	return price, nil
}
