package sessioncart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sasusavage/perfumeshop/internal/domain"
	plog "github.com/sasusavage/perfumeshop/pkg/logger"
)

// MaxQuantity is the largest quantity a single cart line may hold.
const MaxQuantity = 99

var (
	ErrInvalidID       = errors.New("id must be positive")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
	ErrMissingName     = errors.New("name is required")
)

// sharedLoadTimeout bounds a coalesced read, which outlives any single caller.
const sharedLoadTimeout = 5 * time.Second

// Service implements the session cart rules on top of a Store.
type Service struct {
	store Store
	sfg   singleflight.Group // coalesces concurrent reads of one session

	mu     sync.Mutex
	locks  map[string]*sessionLock
	logger *zap.Logger
}

// sessionLock serializes mutations of one session. It is dropped from
// Service.locks once no caller holds or waits for it.
type sessionLock struct {
	sync.Mutex
	refs int
}

func NewService(store Store, logger *zap.Logger) *Service {
	logger = plog.OrNop(logger)
	return &Service{
		store:  store,
		locks:  make(map[string]*sessionLock),
		logger: logger,
	}
}

// Cart returns the session cart, empty when the session has none. Concurrent
// reads of one session share a single store call; a caller that gives up only
// stops waiting for it.
func (s *Service) Cart(ctx context.Context, sessionID string) (domain.Cart, error) {
	ch := s.sfg.DoChan(sessionID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return s.load(loadCtx, sessionID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneCart(res.Val.(domain.Cart)), nil
	}
}

// Add puts item in the cart, adding to the quantity of an existing line with
// the same id. A zero quantity means one. merged reports whether an existing
// line was increased.
func (s *Service) Add(ctx context.Context, sessionID string, item domain.CartItem) (cart domain.Cart, merged bool, err error) {
	if item.ID <= 0 {
		return nil, false, ErrInvalidID
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, false, ErrMissingName
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Quantity < 0 || item.Quantity > MaxQuantity {
		return nil, false, ErrInvalidQuantity
	}

	cart, err = s.mutate(ctx, sessionID, func(cart domain.Cart) (domain.Cart, error) {
		i := cart.Find(item.ID)
		if i < 0 {
			return append(cart, item), nil
		}
		if cart[i].Quantity+item.Quantity > MaxQuantity {
			return nil, ErrInvalidQuantity
		}
		cart[i].Quantity += item.Quantity
		merged = true
		return cart, nil
	})
	if err != nil {
		return nil, false, err
	}
	return cart, merged, nil
}

// Update sets the quantity of a line. A quantity of zero or less removes it and
// an unknown id leaves the cart unchanged.
func (s *Service) Update(ctx context.Context, sessionID string, id int64, quantity int) (domain.Cart, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	if quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}

	return s.mutate(ctx, sessionID, func(cart domain.Cart) (domain.Cart, error) {
		i := cart.Find(id)
		if i < 0 {
			return cart, nil
		}
		if quantity <= 0 {
			return append(cart[:i], cart[i+1:]...), nil
		}
		cart[i].Quantity = quantity
		return cart, nil
	})
}

func (s *Service) Remove(ctx context.Context, sessionID string, id int64) (domain.Cart, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	return s.mutate(ctx, sessionID, func(cart domain.Cart) (domain.Cart, error) {
		kept := cart[:0]
		for _, item := range cart {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		return kept, nil
	})
}

func (s *Service) Clear(ctx context.Context, sessionID string) (domain.Cart, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Error("store delete cart error", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	return domain.Cart{}, nil
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart, err = fn(cloneCart(cart))
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, sessionID, cart); err != nil {
		s.logger.Error("store set cart error", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	return cart, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (domain.Cart, error) {
	cart, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return domain.Cart{}, nil
	}
	if err != nil {
		s.logger.Error("store get cart error", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	if cart == nil {
		cart = domain.Cart{}
	}
	return cart, nil
}

// lock acquires the session's mutation lock and returns its release func.
func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}
