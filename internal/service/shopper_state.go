package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lumina_shop/internal/model"
	"lumina_shop/internal/repository"
)

// 持久化键，按会话加前缀 "<session>:"
const (
	KeyCart     = "lumina-cart"
	KeyWishlist = "lumina-wishlist"
	KeyOrders   = "lumina-orders"
	KeyRecent   = "lumina-recent"
)

// MaxRecentlyViewed 最近浏览上限
const MaxRecentlyViewed = 10

var (
	// ErrPersist 内存状态已更新，但写入存储失败
	ErrPersist = errors.New("状态持久化失败")
	// ErrStateCorrupt 存储中的值无法解析
	ErrStateCorrupt = errors.New("状态数据损坏")
	// ErrStateUnsynced 该键未能从存储读取，写回会覆盖存储中的数据
	ErrStateUnsynced = errors.New("状态未从存储恢复")
)

// LoadReport 加载结果，记录每个键的失败原因（缺失键不算失败）
type LoadReport struct {
	Errors map[string]error `json:"-"`
}

func (r LoadReport) OK() bool { return len(r.Errors) == 0 }

// Retryable 存在读取失败（非数据损坏）的键，重新加载可能成功
func (r LoadReport) Retryable() bool {
	for _, err := range r.Errors {
		if !errors.Is(err, ErrStateCorrupt) {
			return true
		}
	}
	return false
}

// FailedKeys 加载失败的键
func (r LoadReport) FailedKeys() []string {
	keys := make([]string, 0, len(r.Errors))
	for _, k := range []string{KeyCart, KeyWishlist, KeyOrders, KeyRecent} {
		if _, ok := r.Errors[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// ==================== ShopperState 会话购物状态 ====================

// ShopperState 单个会话的购物车/心愿单/订单/最近浏览
// 所有写操作串行执行，每次修改后同步写回对应的键
type ShopperState struct {
	mu        sync.Mutex
	sessionID string
	repo      repository.StateRepository
	notifier  *Notifier
	logger    *zap.Logger

	cart     []model.CartItem
	wishlist []int64
	orders   []model.Order
	recent   []int64

	unsynced map[string]bool // 读取失败的键，不写回
}

// NewShopperState 创建空状态，需调用 Load 恢复持久化数据
func NewShopperState(sessionID string, repo repository.StateRepository, notifier *Notifier, logger *zap.Logger) *ShopperState {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewNotifier(0)
	}
	return &ShopperState{
		sessionID: sessionID,
		repo:      repo,
		notifier:  notifier,
		logger:    logger.With(zap.String("component", "shopper"), zap.String("session", sessionID)),
		cart:      []model.CartItem{},
		wishlist:  []int64{},
		orders:    []model.Order{},
		recent:    []int64{},
		unsynced:  make(map[string]bool),
	}
}

func (s *ShopperState) SessionID() string { return s.sessionID }

func (s *ShopperState) Notifier() *Notifier { return s.notifier }

// ==================== 加载 ====================

// Load 逐键恢复，任一键失败只清空该集合，不影响其他键
// 读取失败（非数据损坏）的键在内存中为空，之后的修改不会写回该键
func (s *ShopperState) Load(ctx context.Context) LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := LoadReport{Errors: make(map[string]error)}

	var cart []model.CartItem
	if s.loadKey(ctx, KeyCart, &cart, report) {
		s.cart = sanitizeCart(cart)
	}
	var wishlist []int64
	if s.loadKey(ctx, KeyWishlist, &wishlist, report) && wishlist != nil {
		s.wishlist = wishlist
	}
	var orders []model.Order
	if s.loadKey(ctx, KeyOrders, &orders, report) && orders != nil {
		s.orders = orders
	}
	var recent []int64
	if s.loadKey(ctx, KeyRecent, &recent, report) && recent != nil {
		s.recent = dedupeRecent(recent)
	}

	if !report.OK() {
		s.logger.Warn("部分购物状态恢复失败", zap.Strings("keys", report.FailedKeys()))
	}
	return report
}

// loadKey 返回 true 表示成功解析
func (s *ShopperState) loadKey(ctx context.Context, key string, dst any, report LoadReport) bool {
	delete(s.unsynced, key)
	data, err := s.repo.Get(ctx, s.storageKey(key))
	if errors.Is(err, repository.ErrStateNotFound) {
		return false
	}
	if err != nil {
		s.logger.Error("读取状态失败", zap.String("key", key), zap.Error(err))
		report.Errors[key] = err
		s.unsynced[key] = true
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Error("解析状态失败", zap.String("key", key), zap.Error(err))
		report.Errors[key] = fmt.Errorf("%w: 解析 %s 失败: %w", ErrStateCorrupt, key, err)
		return false
	}
	return true
}

// sanitizeCart 合并重复行并丢弃数量非法的行
func sanitizeCart(in []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, 0, len(in))
	index := make(map[int64]int, len(in))
	for _, it := range in {
		if it.Quantity < 1 {
			continue
		}
		if i, ok := index[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}

func dedupeRecent(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, MaxRecentlyViewed)
	for _, id := range in {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == MaxRecentlyViewed {
			break
		}
	}
	return out
}

// ==================== 持久化 ====================

func (s *ShopperState) storageKey(key string) string {
	return s.sessionID + ":" + key
}

// persist 调用方持有锁
func (s *ShopperState) persist(ctx context.Context, key string, v any) error {
	if s.unsynced[key] {
		return fmt.Errorf("%w: %s: %w", ErrPersist, key, ErrStateUnsynced)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, key, err)
	}
	if err := s.repo.Put(ctx, s.storageKey(key), data); err != nil {
		s.logger.Error("写入状态失败", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrPersist, key, err)
	}
	return nil
}

// ==================== 购物车 ====================

// AddToCart 已存在则数量 +1，否则追加一行；不校验库存
func (s *ShopperState) AddToCart(ctx context.Context, product model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.cart {
		if s.cart[i].ID == product.ID {
			s.cart[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		s.cart = append(s.cart, model.CartItem{Product: product.Clone(), Quantity: 1})
	}

	err := s.persist(ctx, KeyCart, s.cart)
	s.notifier.Show(fmt.Sprintf("Added %s to cart", product.Title), model.ToastSuccess)
	return err
}

// RemoveFromCart 不存在时无操作
func (s *ShopperState) RemoveFromCart(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.CartItem, 0, len(s.cart))
	for _, it := range s.cart {
		if it.ID != productID {
			out = append(out, it)
		}
	}
	s.cart = out

	err := s.persist(ctx, KeyCart, s.cart)
	s.notifier.Show("Item removed from cart", model.ToastInfo)
	return err
}

// UpdateQuantity quantity < 1 时忽略，删除请走 RemoveFromCart
func (s *ShopperState) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cart {
		if s.cart[i].ID == productID {
			s.cart[i].Quantity = quantity
			return s.persist(ctx, KeyCart, s.cart)
		}
	}
	return nil
}

func (s *ShopperState) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = []model.CartItem{}
	return s.persist(ctx, KeyCart, s.cart)
}

// CartTotal Σ price × quantity
func (s *ShopperState) CartTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartTotal(s.cart)
}

// CartCount Σ quantity，不是行数
func (s *ShopperState) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.cart {
		n += it.Quantity
	}
	return n
}

func cartTotal(items []model.CartItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	return total.InexactFloat64()
}

func (s *ShopperState) Cart() []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CartItem, len(s.cart))
	for i, it := range s.cart {
		out[i] = it.Clone()
	}
	return out
}

// ==================== 心愿单 ====================

// ToggleWishlist 返回切换后是否在心愿单中
func (s *ShopperState) ToggleWishlist(ctx context.Context, productID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.wishlist {
		if id == productID {
			s.wishlist = append(append([]int64{}, s.wishlist[:i]...), s.wishlist[i+1:]...)
			err := s.persist(ctx, KeyWishlist, s.wishlist)
			s.notifier.Show("Removed from wishlist", model.ToastInfo)
			return false, err
		}
	}

	s.wishlist = append(s.wishlist, productID)
	err := s.persist(ctx, KeyWishlist, s.wishlist)
	s.notifier.Show("Added to wishlist", model.ToastSuccess)
	return true, err
}

func (s *ShopperState) IsInWishlist(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.wishlist {
		if id == productID {
			return true
		}
	}
	return false
}

func (s *ShopperState) Wishlist() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64{}, s.wishlist...)
}

// ==================== 订单 ====================

// AddOrder 插到最前，不去重
func (s *ShopperState) AddOrder(ctx context.Context, order model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append([]model.Order{order.Clone()}, s.orders...)
	return s.persist(ctx, KeyOrders, s.orders)
}

func (s *ShopperState) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

// ==================== 最近浏览 ====================

// AddRecentlyViewed 去重后插到最前，最多保留 10 个
func (s *ShopperState) AddRecentlyViewed(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int64, 0, MaxRecentlyViewed)
	out = append(out, productID)
	for _, id := range s.recent {
		if id == productID {
			continue
		}
		if len(out) == MaxRecentlyViewed {
			break
		}
		out = append(out, id)
	}
	s.recent = out
	return s.persist(ctx, KeyRecent, s.recent)
}

func (s *ShopperState) RecentlyViewed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64{}, s.recent...)
}

// ==================== 结算辅助 ====================

// snapshotCart 结算时取购物车快照与总价
func (s *ShopperState) snapshotCart() ([]model.CartItem, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.CartItem, len(s.cart))
	for i, it := range s.cart {
		items[i] = it.Clone()
	}
	return items, cartTotal(s.cart)
}

// checkoutCart 在同一把锁内取快照、生成订单并清空购物车
// build 收到的快照为空时返回 ErrEmptyCart；两个键都会尝试写回
func (s *ShopperState) checkoutCart(ctx context.Context, build func(items []model.CartItem, total float64) model.Order) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		return model.Order{}, ErrEmptyCart
	}
	items := make([]model.CartItem, len(s.cart))
	for i, it := range s.cart {
		items[i] = it.Clone()
	}
	order := build(items, cartTotal(s.cart))

	s.orders = append([]model.Order{order.Clone()}, s.orders...)
	s.cart = []model.CartItem{}
	return order, errors.Join(s.persist(ctx, KeyOrders, s.orders), s.persist(ctx, KeyCart, s.cart))
}
