package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mandiwatch/internal/market"
)

// SourceLive labels rows scraped from the live spot page.
const SourceLive = "ncdex-live"

// table column layout on the live spot page.
const (
	colCommodity = 0
	colLocation  = 2
	colTime      = 3
	colPrice     = 4
	colChange    = 5
)

// NCDEXOptions parameterise the live spot scraper.
type NCDEXOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// NCDEX scrapes the live spot price table.
type NCDEX struct {
	opts   NCDEXOptions
	client *http.Client
	logger zerolog.Logger
}

// NewNCDEX constructs the live spot fetcher.
func NewNCDEX(opts NCDEXOptions, logger zerolog.Logger) *NCDEX {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.URL == "" {
		opts.URL = "https://www.ncdex.com/markets/livespot"
	}

	return &NCDEX{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "feed_ncdex").Logger(),
	}
}

// Fetch downloads the live spot page and extracts the price table.
func (n *NCDEX) Fetch(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.opts.URL, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create spot request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if ua := strings.TrimSpace(n.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "mandiwatch/1.0")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch spot page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("spot page status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse spot page: %w", err)
	}

	fetchedAt := time.Now().UTC()
	rows := make([]Row, 0)
	doc.Find("table.table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cols := tr.Find("td")
		row := Row{
			Commodity: cellText(cols, colCommodity),
			Location:  cellText(cols, colLocation),
			Time:      cellText(cols, colTime),
			Price:     cellText(cols, colPrice),
			Change:    cellText(cols, colChange),
		}
		if row.Commodity == "" || row.Price == "" {
			return
		}
		row.ChangePercent = derivePercent(row.Change, row.Price)
		rows = append(rows, row)
	})

	if len(rows) == 0 {
		return Snapshot{}, errors.New("spot page contained no price rows")
	}

	n.logger.Debug().Int("rows", len(rows)).Msg("scraped live spot table")
	return Snapshot{Rows: rows, Source: SourceLive, FetchedAt: fetchedAt}, nil
}

func cellText(cols *goquery.Selection, idx int) string {
	return strings.TrimSpace(cols.Eq(idx).Text())
}

// derivePercent computes a signed percentage from the absolute change and the
// price, matching how the source page reports it. Unparsable inputs yield an
// empty string rather than "0.00".
func derivePercent(change, price string) string {
	c := market.ParseChange(change)
	p := market.ParsePrice(price)
	if !c.Valid || !p.Valid || p.Decimal.IsZero() {
		return ""
	}
	pct := c.Decimal.Div(p.Decimal).Mul(decimal.NewFromInt(100))
	sign := ""
	if pct.Sign() >= 0 {
		sign = "+"
	}
	return sign + pct.StringFixed(2)
}

var _ Fetcher = (*NCDEX)(nil)
