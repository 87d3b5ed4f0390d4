package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lumina_shop/internal/model"
	"lumina_shop/internal/repository"
)

// ==================== 测试辅助 ====================

// memStateRepo 内存仓储，可注入读写错误
type memStateRepo struct {
	mu      sync.Mutex
	data    map[string][]byte
	putErr  error
	getErrs map[string]error
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{data: make(map[string][]byte), getErrs: make(map[string]error)}
}

func (r *memStateRepo) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.getErrs[key]; ok {
		return nil, err
	}
	v, ok := r.data[key]
	if !ok {
		return nil, repository.ErrStateNotFound
	}
	return v, nil
}

func (r *memStateRepo) Put(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.data[key] = append([]byte(nil), value...)
	return nil
}

func (r *memStateRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}

func (r *memStateRepo) raw(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.data[key])
}

func setupStateDB(t *testing.T) repository.StateRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.StateEntry{}))
	return repository.NewStateRepository(db)
}

func testProduct(id int64, price float64) model.Product {
	return model.Product{ID: id, Title: "P" + string(rune('A'+id)), Price: price, Category: "phones"}
}

// ==================== 购物车 ====================

func TestShopperState_AddToCart(t *testing.T) {
	ctx := context.Background()
	s := NewShopperState("s1", newMemStateRepo(), nil, nil)

	require.NoError(t, s.AddToCart(ctx, testProduct(1, 10)))
	require.NoError(t, s.AddToCart(ctx, testProduct(2, 2.5)))
	require.NoError(t, s.AddToCart(ctx, testProduct(1, 10)))

	cart := s.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, int64(1), cart[0].ID)
	assert.Equal(t, 2, cart[0].Quantity)
	assert.Equal(t, 1, cart[1].Quantity)

	assert.Equal(t, 3, s.CartCount())
	assert.Equal(t, 22.5, s.CartTotal())

	toast := s.Notifier().Current()
	assert.Equal(t, "Added PB to cart", toast.Message)
	assert.Equal(t, model.ToastSuccess, toast.Type)
	assert.True(t, toast.Visible)
}

func TestShopperState_CartTotalDecimal(t *testing.T) {
	ctx := context.Background()
	s := NewShopperState("s1", newMemStateRepo(), nil, nil)

	require.NoError(t, s.AddToCart(ctx, testProduct(1, 0.1)))
	require.NoError(t, s.AddToCart(ctx, testProduct(2, 0.2)))
	assert.Equal(t, 0.3, s.CartTotal())
}

func TestShopperState_RemoveAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewShopperState("s1", newMemStateRepo(), nil, nil)
	require.NoError(t, s.AddToCart(ctx, testProduct(1, 10)))
	require.NoError(t, s.AddToCart(ctx, testProduct(2, 5)))

	require.NoError(t, s.UpdateQuantity(ctx, 2, 4))
	assert.Equal(t, 30.0, s.CartTotal())

	// 非法数量忽略
	require.NoError(t, s.UpdateQuantity(ctx, 2, 0))
	require.NoError(t, s.UpdateQuantity(ctx, 2, -3))
	assert.Equal(t, 5, s.CartCount())

	// 不在购物车中忽略
	require.NoError(t, s.UpdateQuantity(ctx, 99, 3))
	assert.Len(t, s.Cart(), 2)

	require.NoError(t, s.RemoveFromCart(ctx, 1))
	assert.Equal(t, []int64{2}, cartIDs(s.Cart()))
	assert.Equal(t, "Item removed from cart", s.Notifier().Current().Message)
	assert.Equal(t, model.ToastInfo, s.Notifier().Current().Type)

	require.NoError(t, s.RemoveFromCart(ctx, 1))
	assert.Len(t, s.Cart(), 1)

	require.NoError(t, s.ClearCart(ctx))
	assert.Empty(t, s.Cart())
	assert.Equal(t, 0.0, s.CartTotal())
}

func cartIDs(items []model.CartItem) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// ==================== 心愿单/订单/最近浏览 ====================

func TestShopperState_ToggleWishlist(t *testing.T) {
	ctx := context.Background()
	s := NewShopperState("s1", newMemStateRepo(), nil, nil)

	in, err := s.ToggleWishlist(ctx, 5)
	require.NoError(t, err)
	assert.True(t, in)
	assert.True(t, s.IsInWishlist(5))
	assert.Equal(t, "Added to wishlist", s.Notifier().Current().Message)

	_, _ = s.ToggleWishlist(ctx, 7)
	in, err = s.ToggleWishlist(ctx, 5)
	require.NoError(t, err)
	assert.False(t, in)
	assert.False(t, s.IsInWishlist(5))
	assert.Equal(t, []int64{7}, s.Wishlist())
	assert.Equal(t, "Removed from wishlist", s.Notifier().Current().Message)
	assert.Equal(t, model.ToastInfo, s.Notifier().Current().Type)
}

func TestShopperState_AddOrder(t *testing.T) {
	ctx := context.Background()
	s := NewShopperState("s1", newMemStateRepo(), nil, nil)

	require.NoError(t, s.AddOrder(ctx, model.Order{ID: "A", Status: model.OrderStatusProcessing}))
	require.NoError(t, s.AddOrder(ctx, model.Order{ID: "B", Status: model.OrderStatusProcessing}))
	require.NoError(t, s.AddOrder(ctx, model.Order{ID: "A", Status: model.OrderStatusProcessing}))

	orders := s.Orders()
	require.Len(t, orders, 3)
	assert.Equal(t, []string{"A", "B", "A"}, []string{orders[0].ID, orders[1].ID, orders[2].ID})
}

func TestShopperState_AddRecentlyViewed(t *testing.T) {
	ctx := context.Background()
	s := NewShopperState("s1", newMemStateRepo(), nil, nil)

	for id := int64(1); id <= 12; id++ {
		require.NoError(t, s.AddRecentlyViewed(ctx, id))
	}
	assert.Equal(t, []int64{12, 11, 10, 9, 8, 7, 6, 5, 4, 3}, s.RecentlyViewed())

	require.NoError(t, s.AddRecentlyViewed(ctx, 7))
	assert.Equal(t, []int64{7, 12, 11, 10, 9, 8, 6, 5, 4, 3}, s.RecentlyViewed())
	assert.Len(t, s.RecentlyViewed(), MaxRecentlyViewed)
}

func TestShopperState_SnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewShopperState("s1", newMemStateRepo(), nil, nil)
	require.NoError(t, s.AddToCart(ctx, testProduct(1, 10)))
	_, _ = s.ToggleWishlist(ctx, 1)

	cart := s.Cart()
	cart[0].Quantity = 50
	wl := s.Wishlist()
	wl[0] = 99

	assert.Equal(t, 1, s.CartCount())
	assert.True(t, s.IsInWishlist(1))
}

// ==================== 持久化 ====================

func TestShopperState_PersistsPerKey(t *testing.T) {
	ctx := context.Background()
	repo := newMemStateRepo()
	s := NewShopperState("abc", repo, nil, nil)

	require.NoError(t, s.AddToCart(ctx, testProduct(1, 10)))
	assert.Contains(t, repo.raw("abc:"+KeyCart), `"quantity":1`)
	assert.Empty(t, repo.raw("abc:"+KeyWishlist))

	_, _ = s.ToggleWishlist(ctx, 3)
	assert.Equal(t, "[3]", repo.raw("abc:"+KeyWishlist))

	require.NoError(t, s.AddRecentlyViewed(ctx, 4))
	assert.Equal(t, "[4]", repo.raw("abc:"+KeyRecent))
}

func TestShopperState_PersistError(t *testing.T) {
	ctx := context.Background()
	repo := newMemStateRepo()
	repo.putErr = errors.New("disk full")
	s := NewShopperState("s1", repo, nil, nil)

	err := s.AddToCart(ctx, testProduct(1, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, repo.putErr)

	// 内存中的修改保留
	assert.Equal(t, 1, s.CartCount())
	assert.Equal(t, "Added PB to cart", s.Notifier().Current().Message)

	in, err := s.ToggleWishlist(ctx, 1)
	assert.True(t, in)
	assert.ErrorIs(t, err, ErrPersist)
}

func TestShopperState_LoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupStateDB(t)

	s := NewShopperState("sess", repo, nil, nil)
	require.NoError(t, s.AddToCart(ctx, testProduct(1, 10)))
	require.NoError(t, s.AddToCart(ctx, testProduct(1, 10)))
	_, err := s.ToggleWishlist(ctx, 9)
	require.NoError(t, err)
	require.NoError(t, s.AddOrder(ctx, model.Order{ID: "LUM-1", Status: model.OrderStatusShipped, Total: 20}))
	require.NoError(t, s.AddRecentlyViewed(ctx, 1))

	restored := NewShopperState("sess", repo, nil, nil)
	report := restored.Load(ctx)
	assert.True(t, report.OK())

	cart := restored.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, int64(1), cart[0].ID)
	assert.Equal(t, 2, cart[0].Quantity)
	assert.Equal(t, 20.0, restored.CartTotal())
	assert.Equal(t, []int64{9}, restored.Wishlist())
	assert.Equal(t, []int64{1}, restored.RecentlyViewed())
	require.Len(t, restored.Orders(), 1)
	assert.Equal(t, model.OrderStatusShipped, restored.Orders()[0].Status)

	// 其他会话互不可见
	other := NewShopperState("other", repo, nil, nil)
	assert.True(t, other.Load(ctx).OK())
	assert.Empty(t, other.Cart())
}

func TestShopperState_LoadPartialFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemStateRepo()
	repo.data["s:"+KeyCart] = []byte(`{not json`)
	repo.data["s:"+KeyWishlist] = []byte(`[1,2]`)
	repo.data["s:"+KeyOrders] = []byte(`[{"id":"X","status":"Teleported"}]`)
	repo.getErrs["s:"+KeyRecent] = errors.New("connection reset")

	s := NewShopperState("s", repo, nil, nil)
	report := s.Load(ctx)

	assert.False(t, report.OK())
	assert.Equal(t, []string{KeyCart, KeyOrders, KeyRecent}, report.FailedKeys())
	assert.Empty(t, s.Cart())
	assert.Empty(t, s.Orders())
	assert.Empty(t, s.RecentlyViewed())
	assert.Equal(t, []int64{1, 2}, s.Wishlist())
	assert.True(t, report.Retryable())

	// 读取失败的键不写回，损坏的键可以被覆盖
	err := s.AddRecentlyViewed(ctx, 7)
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, ErrStateUnsynced)
	assert.Equal(t, []int64{7}, s.RecentlyViewed())
	assert.Empty(t, repo.raw("s:"+KeyRecent))

	require.NoError(t, s.AddToCart(ctx, testProduct(1, 10)))
	assert.Contains(t, repo.raw("s:"+KeyCart), `"quantity":1`)
}

func TestLoadReport_Retryable(t *testing.T) {
	tests := []struct {
		name string
		errs map[string]error
		want bool
	}{
		{"无错误", nil, false},
		{"仅数据损坏", map[string]error{KeyCart: fmt.Errorf("%w: x", ErrStateCorrupt)}, false},
		{"读取失败", map[string]error{KeyCart: errors.New("timeout")}, true},
		{"混合", map[string]error{
			KeyCart:   fmt.Errorf("%w: x", ErrStateCorrupt),
			KeyOrders: context.Canceled,
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LoadReport{Errors: tt.errs}.Retryable())
		})
	}
}

func TestShopperState_LoadSanitizes(t *testing.T) {
	ctx := context.Background()
	repo := newMemStateRepo()
	repo.data["s:"+KeyCart] = []byte(`[{"id":1,"price":5,"quantity":1},{"id":2,"price":3,"quantity":0},{"id":1,"price":5,"quantity":2}]`)
	repo.data["s:"+KeyRecent] = []byte(`[3,3,1,2,1]`)
	repo.data["s:"+KeyWishlist] = []byte(`null`)

	s := NewShopperState("s", repo, nil, nil)
	assert.True(t, s.Load(ctx).OK())

	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Quantity)
	assert.Equal(t, []int64{3, 1, 2}, s.RecentlyViewed())
	assert.NotNil(t, s.Wishlist())
	assert.Empty(t, s.Wishlist())
}

// ==================== ShopperService ====================

func TestShopperService_Session(t *testing.T) {
	ctx := context.Background()
	repo := newMemStateRepo()
	repo.data["x:"+KeyCart] = []byte(`broken`)
	svc := NewShopperService(repo, 0, nil)

	s1, report := svc.Session(ctx, "x")
	assert.Equal(t, []string{KeyCart}, report.FailedKeys())

	// 再次访问返回同一实例，不重复加载
	s2, report := svc.Session(ctx, "x")
	assert.Same(t, s1, s2)
	assert.True(t, report.OK())
	assert.Equal(t, 1, svc.SessionCount())

	require.NoError(t, s1.AddToCart(ctx, testProduct(1, 10)))
	svc.Forget("x")
	assert.Equal(t, 0, svc.SessionCount())

	s3, report := svc.Session(ctx, "x")
	assert.NotSame(t, s1, s3)
	assert.True(t, report.OK())
	assert.Equal(t, 1, s3.CartCount())
}

// ctxStateRepo 上下文取消后读写都失败
type ctxStateRepo struct {
	*memStateRepo
}

func (r ctxStateRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.memStateRepo.Get(ctx, key)
}

func (r ctxStateRepo) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memStateRepo.Put(ctx, key, value)
}

func TestShopperService_SessionIgnoresRequestCancel(t *testing.T) {
	ctx := context.Background()
	mem := newMemStateRepo()
	seeded := NewShopperState("s1", mem, nil, nil)
	for id := int64(1); id <= 3; id++ {
		require.NoError(t, seeded.AddToCart(ctx, testProduct(id, 10)))
	}

	svc := NewShopperService(ctxStateRepo{mem}, 0, nil)
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	state, report := svc.Session(cancelled, "s1")
	require.True(t, report.OK(), "keys: %v", report.FailedKeys())
	assert.Equal(t, 3, state.CartCount())

	require.NoError(t, state.AddToCart(ctx, testProduct(4, 10)))

	restored := NewShopperState("s1", mem, nil, nil)
	require.True(t, restored.Load(ctx).OK())
	assert.Len(t, restored.Cart(), 4)
}

func TestShopperService_SessionRetriesAfterReadError(t *testing.T) {
	ctx := context.Background()
	repo := newMemStateRepo()
	repo.data["s1:"+KeyCart] = []byte(`[{"id":1,"price":10,"quantity":2}]`)
	repo.getErrs["s1:"+KeyCart] = errors.New("connection reset")
	svc := NewShopperService(repo, 0, nil)

	stale, report := svc.Session(ctx, "s1")
	assert.Equal(t, []string{KeyCart}, report.FailedKeys())
	assert.Equal(t, 0, svc.SessionCount())

	// 未恢复的购物车不能覆盖存储
	err := stale.AddToCart(ctx, testProduct(5, 1))
	assert.ErrorIs(t, err, ErrStateUnsynced)
	assert.Equal(t, `[{"id":1,"price":10,"quantity":2}]`, repo.raw("s1:"+KeyCart))

	delete(repo.getErrs, "s1:"+KeyCart)
	fresh, report := svc.Session(ctx, "s1")
	assert.NotSame(t, stale, fresh)
	assert.True(t, report.OK())
	assert.Equal(t, 2, fresh.CartCount())
	assert.Equal(t, 1, svc.SessionCount())
}

func TestShopperService_EvictIdle(t *testing.T) {
	ctx := context.Background()
	repo := newMemStateRepo()
	svc := NewShopperService(repo, 0, nil)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc.now = func() time.Time { return now }

	old, _ := svc.Session(ctx, "old")
	require.NoError(t, old.AddToCart(ctx, testProduct(1, 10)))
	now = base.Add(time.Hour)
	_, _ = svc.Session(ctx, "active")

	assert.Equal(t, 1, svc.EvictIdle(base.Add(30*time.Minute)))
	assert.Equal(t, 1, svc.SessionCount())

	// 丢弃后从存储恢复
	back, report := svc.Session(ctx, "old")
	assert.True(t, report.OK())
	assert.NotSame(t, old, back)
	assert.Equal(t, 1, back.CartCount())
}

func TestShopperState_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := NewShopperState("s", newMemStateRepo(), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddToCart(ctx, testProduct(1, 1))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.CartCount())
	assert.Len(t, s.Cart(), 1)
}
