package sessioncart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sasusavage/perfumeshop/internal/domain"
	plog "github.com/sasusavage/perfumeshop/pkg/logger"
)

// EventCheckoutCompleted is published once payment for a session's cart is confirmed.
const EventCheckoutCompleted = "checkout.completed"

// readRetryDelay is the pause after a failed read before the next attempt.
const readRetryDelay = time.Second

var ErrMissingSession = errors.New("missing or invalid session_id")

type CheckoutEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Reference string `json:"reference,omitempty"`
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type cartClearer interface {
	Clear(ctx context.Context, sessionID string) (domain.Cart, error)
}

// Poller empties session carts when their checkout completes.
type Poller struct {
	carts      cartClearer
	reader     messageReader
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewPoller(carts *Service, logger *zap.Logger, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(carts, reader, logger)
}

func newPoller(carts cartClearer, reader messageReader, logger *zap.Logger) *Poller {
	logger = plog.OrNop(logger)
	return &Poller{carts: carts, reader: reader, logger: logger, retryDelay: readRetryDelay}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}

		if err := p.handle(ctx, m.Value); err != nil {
			p.logger.Warn("checkout event not applied",
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handle(ctx context.Context, value []byte) error {
	var ev CheckoutEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	if ev.Type != EventCheckoutCompleted {
		return nil
	}
	if ev.SessionID == "" {
		return ErrMissingSession
	}

	if _, err := p.carts.Clear(ctx, ev.SessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	p.logger.Info("cart cleared after checkout",
		zap.String("session", ev.SessionID),
		zap.String("reference", ev.Reference),
	)
	return nil
}
