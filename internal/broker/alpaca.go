package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/config"
	apperrors "github.com/Cikle/Alpatrader/internal/errors"
	"github.com/Cikle/Alpatrader/internal/models"
)

const defaultHTTPTimeout = 15 * time.Second

// AlpacaClient implements Broker against the Alpaca paper/live REST API.
type AlpacaClient struct {
	baseURL    string
	dataURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAlpacaClient creates a new Alpaca broker client from credentials.
func NewAlpacaClient(creds config.AlpacaCredentials, logger zerolog.Logger) (*AlpacaClient, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, apperrors.ErrCredentialsMissing
	}
	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = "https://paper-api.alpaca.markets"
	}
	dataURL := creds.DataURL
	if dataURL == "" {
		dataURL = "https://data.alpaca.markets"
	}
	return &AlpacaClient{
		baseURL:    baseURL,
		dataURL:    dataURL,
		apiKey:     creds.APIKey,
		apiSecret:  creds.APISecret,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger.With().Str("component", "alpaca").Logger(),
	}, nil
}

func (c *AlpacaClient) doJSON(ctx context.Context, method, rawURL string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewBrokerError(0, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewBrokerError(resp.StatusCode, "reading response", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &apiErr)
		return apperrors.NewBrokerError(resp.StatusCode, apiErr.Message, nil)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.NewBrokerError(resp.StatusCode, "decoding response", err)
		}
	}
	return nil
}

// Alpaca encodes numeric fields as JSON strings.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

type alpacaAccount struct {
	Equity      string `json:"equity"`
	BuyingPower string `json:"buying_power"`
	Cash        string `json:"cash"`
}

// GetAccount returns the account's equity, buying power and cash.
func (c *AlpacaClient) GetAccount(ctx context.Context) (*models.Account, error) {
	var acct alpacaAccount
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/v2/account", nil, &acct); err != nil {
		return nil, apperrors.Wrap(err, "fetching account")
	}
	return &models.Account{
		Equity:      parseFloat(acct.Equity),
		BuyingPower: parseFloat(acct.BuyingPower),
		Cash:        parseFloat(acct.Cash),
	}, nil
}

type alpacaPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
	MarketValue   string `json:"market_value"`
	UnrealizedPL  string `json:"unrealized_pl"`
}

// GetPositions returns all open positions.
func (c *AlpacaClient) GetPositions(ctx context.Context) ([]models.Position, error) {
	var raw []alpacaPosition
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/v2/positions", nil, &raw); err != nil {
		return nil, apperrors.Wrap(err, "fetching positions")
	}

	positions := make([]models.Position, 0, len(raw))
	for _, p := range raw {
		qty, err := strconv.Atoi(p.Qty)
		if err != nil {
			c.logger.Warn().Str("ticker", p.Symbol).Str("qty", p.Qty).
				Msg("Skipping position with non-integer quantity")
			continue
		}
		positions = append(positions, models.Position{
			Ticker:       p.Symbol,
			Quantity:     qty,
			EntryPrice:   parseFloat(p.AvgEntryPrice),
			CurrentPrice: parseFloat(p.CurrentPrice),
			MarketValue:  parseFloat(p.MarketValue),
			UnrealizedPL: parseFloat(p.UnrealizedPL),
		})
	}
	return positions, nil
}

type alpacaBar struct {
	Close float64 `json:"c"`
}

// GetQuote returns the latest trade price for a ticker.
func (c *AlpacaClient) GetQuote(ctx context.Context, ticker string) (float64, error) {
	var resp struct {
		Bar alpacaBar `json:"bar"`
	}
	u := fmt.Sprintf("%s/v2/stocks/%s/bars/latest", c.dataURL, url.PathEscape(ticker))
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return 0, apperrors.Wrapf(err, "fetching quote for %s", ticker)
	}
	if resp.Bar.Close <= 0 {
		return 0, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "no bar for %s", ticker)
	}
	return resp.Bar.Close, nil
}

// IsMarketOpen queries the broker clock.
func (c *AlpacaClient) IsMarketOpen(ctx context.Context) (bool, error) {
	var clock struct {
		IsOpen bool `json:"is_open"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/v2/clock", nil, &clock); err != nil {
		return false, apperrors.Wrap(err, "fetching market clock")
	}
	return clock.IsOpen, nil
}

type alpacaOrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	LimitPrice  string `json:"limit_price,omitempty"`
	ClientID    string `json:"client_order_id,omitempty"`
}

type alpacaOrder struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Qty            string    `json:"qty"`
	Side           string    `json:"side"`
	Status         string    `json:"status"`
	FilledAvgPrice string    `json:"filled_avg_price"`
	CreatedAt      time.Time `json:"created_at"`
	FilledAt       time.Time `json:"filled_at"`
}

// SubmitOrder submits an order. Option orders use the option symbol as the
// traded instrument. A rejection is reported in the result, not as an error.
func (c *AlpacaClient) SubmitOrder(ctx context.Context, order *models.Order) (*models.OrderResult, error) {
	symbol := order.Ticker
	if order.Class == models.AssetOption && order.OptionSymbol != "" {
		symbol = order.OptionSymbol
	}

	tif := order.TimeInForce
	if tif == "" {
		tif = "day"
	}
	req := alpacaOrderRequest{
		Symbol:      symbol,
		Qty:         strconv.Itoa(order.Quantity),
		Side:        string(order.Side),
		Type:        string(order.Type),
		TimeInForce: tif,
		ClientID:    order.Tag,
	}
	if order.Type == models.OrderTypeLimit {
		req.LimitPrice = strconv.FormatFloat(order.LimitPrice, 'f', 2, 64)
	}

	var resp alpacaOrder
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v2/orders", req, &resp)
	if err != nil {
		var brokerErr *apperrors.BrokerError
		if apperrors.As(err, &brokerErr) && brokerErr.Code == http.StatusForbidden {
			return &models.OrderResult{
				Accepted: false,
				Status:   "rejected",
				Reason:   brokerErr.Message,
			}, nil
		}
		return nil, apperrors.NewOrderError("", order.Ticker, string(order.Side), "submit failed", err)
	}

	c.logger.Info().
		Str("ticker", order.Ticker).
		Str("side", string(order.Side)).
		Int("quantity", order.Quantity).
		Str("order_id", resp.ID).
		Msg("Order submitted")

	return &models.OrderResult{
		OrderID:  resp.ID,
		Accepted: true,
		Status:   resp.Status,
	}, nil
}

// GetOrders returns past orders for a ticker, most recent first.
func (c *AlpacaClient) GetOrders(ctx context.Context, ticker string) ([]models.HistoricalOrder, error) {
	q := url.Values{}
	q.Set("status", "all")
	q.Set("symbols", ticker)
	q.Set("limit", "100")
	q.Set("direction", "desc")

	var raw []alpacaOrder
	u := c.baseURL + "/v2/orders?" + q.Encode()
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &raw); err != nil {
		return nil, apperrors.Wrapf(err, "fetching orders for %s", ticker)
	}

	orders := make([]models.HistoricalOrder, 0, len(raw))
	for _, o := range raw {
		qty, _ := strconv.Atoi(o.Qty)
		orders = append(orders, models.HistoricalOrder{
			ID:             o.ID,
			Ticker:         o.Symbol,
			Side:           models.OrderSide(o.Side),
			Quantity:       qty,
			Status:         o.Status,
			FilledAvgPrice: parseFloat(o.FilledAvgPrice),
			CreatedAt:      o.CreatedAt,
			FilledAt:       o.FilledAt,
		})
	}
	return orders, nil
}

type alpacaAsset struct {
	Shortable bool `json:"shortable"`
	Tradable  bool `json:"tradable"`
}

// IsShortable reports whether the asset can be sold short.
func (c *AlpacaClient) IsShortable(ctx context.Context, ticker string) (bool, error) {
	var asset alpacaAsset
	u := c.baseURL + "/v2/assets/" + url.PathEscape(ticker)
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &asset); err != nil {
		return false, apperrors.Wrapf(err, "fetching asset %s", ticker)
	}
	return asset.Tradable && asset.Shortable, nil
}
