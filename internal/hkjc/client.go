// Package hkjc предоставляет клиент GraphQL API HKJC с результатами тиражей Mark Six.
package hkjc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mmeshcher/marksix/internal/model"
)

// DefaultEndpoint адрес публичного GraphQL API.
const DefaultEndpoint = "https://info.cld.hkjc.com/graphql/base/"

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 2
	operationName  = "marksixResult"
	drawTypeAll    = "All"
)

// ErrTransport возвращается при любой ошибке обращения к API: сеть, таймаут, статус, тело ответа.
var ErrTransport = errors.New("hkjc transport failure")

const drawFragment = `fragment lotteryDrawsFragment on LotteryDraw {
  id
  year
  no
  openDate
  closeDate
  drawDate
  status
  snowballCode
  snowballName_en
  snowballName_ch
  lotteryPool {
    sell
    status
    totalInvestment
    jackpot
    unitBet
    estimatedPrize
    derivedFirstPrizeDiv
  }
  drawResult {
    drawnNo
    xDrawnNo
  }
}`

const drawsQuery = drawFragment + `

query marksixResult($lastNDraw: Int, $startDate: String, $endDate: String, $drawType: LotteryDrawType) {
  lotteryDraws(lastNDraw: $lastNDraw, startDate: $startDate, endDate: $endDate, drawType: $drawType) {
    ...lotteryDrawsFragment
  }
}
`

// Client инкапсулирует HTTP-взаимодействие с API результатов тиражей.
type Client struct {
	endpoint   string
	httpClient *retryablehttp.Client
}

// Option настраивает Client.
type Option func(*retryablehttp.Client)

// WithTimeout ограничивает время одной попытки запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *retryablehttp.Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithRetries задаёт число повторов после первой неудачной попытки.
func WithRetries(n int) Option {
	return func(c *retryablehttp.Client) {
		if n >= 0 {
			c.RetryMax = n
		}
	}
}

// WithRetryWait задаёт границы паузы между повторами.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryWaitMin = minWait
		c.RetryWaitMax = maxWait
	}
}

// WithLogger направляет журнал повторов в zap.
func WithLogger(logger *zap.Logger) Option {
	return func(c *retryablehttp.Client) {
		if logger != nil {
			c.Logger = leveledLogger{logger.Sugar()}
		}
	}
}

// NewClient создаёт клиент для указанного адреса GraphQL API.
func NewClient(endpoint string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: defaultTimeout}
	rc.RetryMax = defaultRetries
	rc.Logger = nil

	for _, opt := range opts {
		opt(rc)
	}

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Client{
		endpoint:   endpoint,
		httpClient: rc,
	}
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type drawsResponse struct {
	Data *struct {
		LotteryDraws []model.RawDraw `json:"lotteryDraws"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// FetchDraws запрашивает тиражи в диапазоне дат YYYY-MM-DD. Пустая граница означает отсутствие ограничения.
// Тиражи возвращаются без фильтрации по статусу.
func (c *Client) FetchDraws(ctx context.Context, startDate, endDate string) ([]model.RawDraw, error) {
	variables := map[string]any{"drawType": drawTypeAll}
	if startDate != "" {
		variables["startDate"] = startDate
	}
	if endDate != "" {
		variables["endDate"] = endDate
	}

	payload, err := json.Marshal(graphQLRequest{
		Query:         drawsQuery,
		Variables:     variables,
		OperationName: operationName,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status: %d", ErrTransport, resp.StatusCode)
	}

	var result drawsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrTransport, err)
	}

	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("%w: graphql: %s", ErrTransport, strings.Join(msgs, "; "))
	}

	if result.Data == nil {
		return nil, fmt.Errorf("%w: response has no data", ErrTransport)
	}

	return result.Data.LotteryDraws, nil
}

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
