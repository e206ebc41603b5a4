package sessioncart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasusavage/perfumeshop/internal/domain"
)

type mockStore struct {
	m      sync.Mutex
	carts  map[string]domain.Cart
	getErr error
	setErr error
	gets   int
}

func newMockStore() *mockStore {
	return &mockStore{carts: make(map[string]domain.Cart)}
}

func (s *mockStore) Get(_ context.Context, sessionID string) (domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	cart, ok := s.carts[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneCart(cart), nil
}

func (s *mockStore) Set(_ context.Context, sessionID string, cart domain.Cart) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.carts[sessionID] = cloneCart(cart)
	return nil
}

func (s *mockStore) Delete(_ context.Context, sessionID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	delete(s.carts, sessionID)
	return nil
}

func TestService_CartEmptyForNewSession(t *testing.T) {
	svc := NewService(newMockStore(), nil)

	cart, err := svc.Cart(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, cart)
	assert.Empty(t, cart)
}

func TestService_AddNewItemDefaultsQuantity(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)

	cart, merged, err := svc.Add(context.Background(), "s1", domain.CartItem{ID: 9, Name: "Vase", Price: 5000})
	require.NoError(t, err)

	assert.False(t, merged)
	assert.Equal(t, domain.Cart{{ID: 9, Name: "Vase", Price: 5000, Quantity: 1}}, cart)
	assert.Equal(t, cart, store.carts["s1"])
}

func TestService_AddMergesExistingItem(t *testing.T) {
	svc := NewService(newMockStore(), nil)
	ctx := context.Background()

	_, _, err := svc.Add(ctx, "s1", domain.CartItem{ID: 1, Name: "Oud", Quantity: 2})
	require.NoError(t, err)
	cart, merged, err := svc.Add(ctx, "s1", domain.CartItem{ID: 1, Name: "Oud", Quantity: 3})
	require.NoError(t, err)

	assert.True(t, merged)
	require.Len(t, cart, 1)
	assert.Equal(t, 5, cart[0].Quantity)
}

func TestService_AddValidation(t *testing.T) {
	svc := NewService(newMockStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		item domain.CartItem
		err  error
	}{
		{"zero id", domain.CartItem{ID: 0, Name: "Oud"}, ErrInvalidID},
		{"blank name", domain.CartItem{ID: 1, Name: "  "}, ErrMissingName},
		{"negative quantity", domain.CartItem{ID: 1, Name: "Oud", Quantity: -1}, ErrInvalidQuantity},
		{"too many", domain.CartItem{ID: 1, Name: "Oud", Quantity: 100}, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Add(ctx, "s1", tt.item)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestService_AddMergeOverLimit(t *testing.T) {
	svc := NewService(newMockStore(), nil)
	ctx := context.Background()

	_, _, err := svc.Add(ctx, "s1", domain.CartItem{ID: 1, Name: "Oud", Quantity: 98})
	require.NoError(t, err)
	_, _, err = svc.Add(ctx, "s1", domain.CartItem{ID: 1, Name: "Oud", Quantity: 2})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	cart, err := svc.Cart(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 98, cart[0].Quantity)
}

func TestService_Update(t *testing.T) {
	store := newMockStore()
	store.carts["s1"] = domain.Cart{{ID: 1, Quantity: 1}, {ID: 2, Quantity: 1}}
	svc := NewService(store, nil)
	ctx := context.Background()

	cart, err := svc.Update(ctx, "s1", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.Cart{{ID: 1, Quantity: 4}, {ID: 2, Quantity: 1}}, cart)

	cart, err = svc.Update(ctx, "s1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Cart{{ID: 1, Quantity: 4}}, cart)

	cart, err = svc.Update(ctx, "s1", 42, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.Cart{{ID: 1, Quantity: 4}}, cart, "unknown id is a no-op")

	_, err = svc.Update(ctx, "s1", 1, 100)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.Update(ctx, "s1", -1, 1)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestService_Remove(t *testing.T) {
	store := newMockStore()
	store.carts["s1"] = domain.Cart{{ID: 1, Quantity: 1}, {ID: 2, Quantity: 3}}
	svc := NewService(store, nil)

	cart, err := svc.Remove(context.Background(), "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Cart{{ID: 2, Quantity: 3}}, cart)
	assert.Equal(t, cart, store.carts["s1"])
}

func TestService_Clear(t *testing.T) {
	store := newMockStore()
	store.carts["s1"] = domain.Cart{{ID: 1, Quantity: 1}}
	svc := NewService(store, nil)

	cart, err := svc.Clear(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, cart)
	assert.NotContains(t, store.carts, "s1")
}

func TestService_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	ctx := context.Background()

	store := newMockStore()
	store.getErr = boom
	svc := NewService(store, nil)
	_, err := svc.Cart(ctx, "s1")
	assert.ErrorIs(t, err, boom)

	store = newMockStore()
	store.setErr = boom
	svc = NewService(store, nil)
	_, _, err = svc.Add(ctx, "s1", domain.CartItem{ID: 1, Name: "Oud"})
	assert.ErrorIs(t, err, boom)
}

func TestService_ConcurrentAddsAreSerialized(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()
	svc := NewService(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Add(ctx, "s1", domain.CartItem{ID: 1, Name: "Oud"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cart, err := svc.Cart(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 50, cart[0].Quantity)
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc := NewService(newMockStore(), nil)
	ctx := context.Background()

	_, _, err := svc.Add(ctx, "a", domain.CartItem{ID: 1, Name: "Oud"})
	require.NoError(t, err)

	cart, err := svc.Cart(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func (s *Service) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func TestService_SessionLocksAreReleased(t *testing.T) {
	store := NewMemoryStore(time.Millisecond)
	defer store.Close()
	svc := NewService(store, nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		sid := fmt.Sprintf("s%d", i)
		_, _, err := svc.Add(ctx, sid, domain.CartItem{ID: 1, Name: "Oud"})
		require.NoError(t, err)
		_, err = svc.Clear(ctx, sid)
		require.NoError(t, err)
	}

	assert.Equal(t, 0, svc.lockCount())
}

func TestService_SessionLocksReleasedUnderContention(t *testing.T) {
	svc := NewService(newMockStore(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for _, sid := range []string{"a", "b", "c"} {
			sid := sid
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.Add(ctx, sid, domain.CartItem{ID: 1, Name: "Oud"})
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, 0, svc.lockCount())
	cart, err := svc.Cart(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 20, cart[0].Quantity)
}

// slowStore blocks Get until release is closed or the call's context ends.
type slowStore struct {
	*mockStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowStore) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.mockStore.Get(ctx, sessionID)
}

func TestService_CoalescedReadSurvivesCancelledCaller(t *testing.T) {
	inner := newMockStore()
	inner.carts["s"] = domain.Cart{{ID: 1, Name: "Oud", Quantity: 2}}
	store := &slowStore{mockStore: inner, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(store, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Cart(ctxA, "s")
		errA <- err
	}()
	<-store.entered

	type result struct {
		cart domain.Cart
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		cart, err := svc.Cart(context.Background(), "s")
		resB <- result{cart, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(store.release)
	got := <-resB
	require.NoError(t, got.err)
	assert.Equal(t, domain.Cart{{ID: 1, Name: "Oud", Quantity: 2}}, got.cart)

	inner.m.Lock()
	defer inner.m.Unlock()
	assert.Equal(t, 1, inner.gets, "reads were coalesced")
}
