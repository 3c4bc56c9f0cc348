package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"sync"
	"time"

	"option_bot/internal/models"
	"option_bot/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client — фабрика соединений с брокером. Соединение живёт один шаг
// движка: connect → авторизация → несколько запросов → Close.
type Client struct {
	cfg      *config.Config
	wsDialer *websocket.Dialer
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		wsDialer: &websocket.Dialer{
			HandshakeTimeout: cfg.Broker.ConnectTimeout,
		},
	}
}

// Connect открывает websocket и сразу авторизуется. На ErrAuth соединение
// закрывается здесь же — наружу выходит только рабочий Conn.
func (c *Client) Connect(ctx context.Context, token string) (*Conn, error) {
	u, err := url.Parse(c.cfg.Broker.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("broker endpoint: %w", err)
	}
	q := u.Query()
	q.Set("app_id", c.cfg.Broker.AppID)
	u.RawQuery = q.Encode()

	ws, _, err := c.wsDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Printf("[WS] dial error: %v", err)
		return nil, fmt.Errorf("broker dial: %w", err)
	}

	conn := &Conn{
		ws:      ws,
		timeout: c.cfg.Broker.RequestTimeout,
	}

	if err := conn.authorize(ctx, token); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Conn — одно авторизованное соединение. Запросы строго последовательные:
// отправили кадр, ждём коррелированный ответ, чужие кадры пропускаем.
type Conn struct {
	ws      *websocket.Conn
	timeout time.Duration

	mu    sync.Mutex
	reqID int64

	balance  float64
	currency string
}

func (c *Conn) Close() error { return c.ws.Close() }

// AuthBalance — баланс из ответа authorize (нужен для initial_balance).
func (c *Conn) AuthBalance() float64 { return c.balance }
func (c *Conn) Currency() string     { return c.currency }

func (c *Conn) authorize(ctx context.Context, token string) error {
	var resp authorizeResponse
	err := c.request(ctx, map[string]any{"authorize": token}, &resp)
	if err != nil {
		return err
	}
	c.balance = resp.Authorize.Balance
	c.currency = resp.Authorize.Currency
	return nil
}

// Balance — актуальный баланс счёта.
func (c *Conn) Balance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	if err := c.request(ctx, map[string]any{"balance": 1}, &resp); err != nil {
		return 0, err
	}
	return resp.Balance.Balance, nil
}

// RecentTicks — последние count тиков, хронологически (старые первыми).
func (c *Conn) RecentTicks(ctx context.Context, symbol string, count int) ([]models.Tick, error) {
	var resp ticksHistoryResponse
	err := c.request(ctx, map[string]any{
		"ticks_history": symbol,
		"count":         count,
		"end":           "latest",
		"style":         "ticks",
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.History.Prices) != len(resp.History.Times) {
		return nil, fmt.Errorf("broker ticks_history: %d prices vs %d times",
			len(resp.History.Prices), len(resp.History.Times))
	}
	ticks := make([]models.Tick, 0, len(resp.History.Prices))
	for i := range resp.History.Prices {
		ticks = append(ticks, models.Tick{
			Time:  time.Unix(resp.History.Times[i], 0).UTC(),
			Price: resp.History.Prices[i],
		})
	}
	return ticks, nil
}

// Proposal — котировка на контракт. CALL для BUY, PUT для SELL.
func (c *Conn) Proposal(
	ctx context.Context,
	symbol string,
	side models.Side,
	stake float64,
	duration int,
	durationUnit string,
) (*models.Proposal, error) {
	contractType := "CALL"
	if side == models.SideSell {
		contractType = "PUT"
	}

	var resp proposalResponse
	err := c.request(ctx, map[string]any{
		"proposal":      1,
		"amount":        stake,
		"basis":         "stake",
		"contract_type": contractType,
		"currency":      c.currency,
		"duration":      duration,
		"duration_unit": durationUnit,
		"symbol":        symbol,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &models.Proposal{
		ID:       resp.Proposal.ID,
		AskPrice: resp.Proposal.AskPrice,
		Payout:   resp.Proposal.Payout,
	}, nil
}

// Buy покупает контракт по proposal_id, возвращает contract_id.
func (c *Conn) Buy(ctx context.Context, proposalID string, price float64) (int64, error) {
	var resp buyResponse
	err := c.request(ctx, map[string]any{
		"buy":   proposalID,
		"price": price,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Buy.ContractID, nil
}

// ContractStatus — состояние купленного контракта.
func (c *Conn) ContractStatus(ctx context.Context, contractID int64) (*models.ContractStatus, error) {
	var resp openContractResponse
	err := c.request(ctx, map[string]any{
		"proposal_open_contract": 1,
		"contract_id":            contractID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &models.ContractStatus{
		IsSold: resp.OpenContract.IsSold == 1,
		Profit: resp.OpenContract.Profit,
	}, nil
}

// request — один раунд-трип: пишем кадр, читаем до ответа с нашим req_id.
// Каждое чтение ограничено дедлайном: незавершаемых recv тут нет.
func (c *Conn) request(ctx context.Context, payload map[string]any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reqID++
	reqID := c.reqID
	payload["req_id"] = reqID
	payload["passthrough"] = map[string]string{"correlation_id": uuid.NewString()}

	data, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker marshal: %w", err)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: write", ErrTimeout)
		}
		return fmt.Errorf("broker write: %w", err)
	}

	for {
		_ = c.ws.SetReadDeadline(deadline)
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: req_id=%d", ErrTimeout, reqID)
			}
			return fmt.Errorf("broker read: %w", err)
		}

		var env envelope
		if err := sonic.Unmarshal(msg, &env); err != nil {
			log.Printf("[WS] skip unparsable frame: %v", err)
			continue
		}
		if env.ReqID != reqID {
			// подписочный или запоздавший кадр — не наш
			continue
		}
		if env.Error != nil {
			return apiErrorToTyped(env.Error)
		}
		if err := sonic.Unmarshal(msg, out); err != nil {
			return fmt.Errorf("broker decode %s: %w", env.MsgType, err)
		}
		return nil
	}
}

func apiErrorToTyped(e *apiError) error {
	switch e.Code {
	case "InvalidToken", "AuthorizationRequired", "DisabledClient":
		return fmt.Errorf("%w: %s", ErrAuth, e.Message)
	default:
		return &RejectionError{Code: e.Code, Message: e.Message}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
