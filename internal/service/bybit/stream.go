package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements KlineStream over the Bybit public websocket.
type Stream struct {
	websocketURL   string
	symbols        []string
	timeframes     []models.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

var _ drepo.KlineStream = (*Stream)(nil)

// NewStream creates a kline stream for the given symbols and timeframes.
func NewStream(websocketURL string, symbols []string, timeframes []models.Timeframe, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *Stream {
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Stream{
		websocketURL:   websocketURL,
		symbols:        symbols,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the websocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("bybit ws connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.log.Info("bybit stream connected", logger.String("url", s.websocketURL))
	return nil
}

// Subscribe subscribes to kline topics for every symbol/timeframe pair.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.connected
	s.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("bybit stream not connected")
	}

	args := make([]string, 0, len(s.symbols)*len(s.timeframes))
	for _, sym := range s.symbols {
		for _, tf := range s.timeframes {
			args = append(args, fmt.Sprintf("kline.%s.%s", intervalCode(tf), sym))
		}
	}

	msg := map[string]interface{}{"op": "subscribe", "args": args}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("bybit subscribe: %w", err)
	}
	s.log.Info("bybit stream subscribed", logger.Int("topics", len(args)))
	return nil
}

type wsKline struct {
	Start   int64  `json:"start"`
	Open    string `json:"open"`
	High    string `json:"high"`
	Low     string `json:"low"`
	Close   string `json:"close"`
	Volume  string `json:"volume"`
	Confirm bool   `json:"confirm"`
}

type wsMessage struct {
	Topic string    `json:"topic"`
	Data  []wsKline `json:"data"`
}

// Read streams kline events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Kline, <-chan error) {
	klines := make(chan *models.Kline, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn != nil {
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(klines)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("bybit conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("bybit read: %w", err)
					return
				}
				for _, k := range parseWSMessage(b) {
					select {
					case klines <- k:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return klines, errs
}

// parseWSMessage decodes one frame into kline updates; non-kline frames
// yield nothing.
func parseWSMessage(b []byte) []*models.Kline {
	var m wsMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	symbol, tf, ok := parseKlineTopic(m.Topic)
	if !ok {
		return nil
	}

	out := make([]*models.Kline, 0, len(m.Data))
	for _, d := range m.Data {
		open, err1 := strconv.ParseFloat(d.Open, 64)
		high, err2 := strconv.ParseFloat(d.High, 64)
		low, err3 := strconv.ParseFloat(d.Low, 64)
		cls, err4 := strconv.ParseFloat(d.Close, 64)
		vol, err5 := strconv.ParseFloat(d.Volume, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		out = append(out, &models.Kline{
			Symbol:    symbol,
			Timeframe: tf,
			Closed:    d.Confirm,
			Candle: models.Candle{
				Timestamp: time.UnixMilli(d.Start).UTC(),
				Open:      open,
				High:      high,
				Low:       low,
				Close:     cls,
				Volume:    vol,
			},
		})
	}
	return out
}

// parseKlineTopic splits "kline.<interval>.<symbol>".
func parseKlineTopic(topic string) (symbol string, tf models.Timeframe, ok bool) {
	var interval string
	n, err := fmt.Sscanf(topic, "kline.%s", &interval)
	if err != nil || n != 1 {
		return "", "", false
	}
	for i := 0; i < len(interval); i++ {
		if interval[i] == '.' {
			code := interval[:i]
			symbol = interval[i+1:]
			for _, candidate := range []models.Timeframe{
				models.TF1m, models.TF5m, models.TF15m, models.TF30m, models.TF1h, models.TF4h,
			} {
				if intervalCode(candidate) == code {
					return symbol, candidate, symbol != ""
				}
			}
			return "", "", false
		}
	}
	return "", "", false
}

// Reconnect closes and reconnects with the configured delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the websocket connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
