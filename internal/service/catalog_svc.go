package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lumina_shop/internal/model"
	"lumina_shop/pkg/seed"
)

// ==================== 错误定义 ====================

var (
	ErrProductNotFound = errors.New("商品不存在")
	ErrSellerNotFound  = errors.New("卖家不存在")
	ErrOrderNotFound   = errors.New("订单不存在")
	ErrCouponExists    = errors.New("优惠码已存在")
	ErrInvalidCoupon   = errors.New("优惠券参数无效")
)

// AdminSeller 后台新增商品默认归属的自营卖家
var AdminSeller = model.Seller{
	ID:         "admin",
	Name:       "Lumina Direct",
	Rating:     5,
	IsOfficial: true,
}

// ==================== CatalogService 商品目录 ====================

// CatalogService 内存商品目录，启动时从种子数据加载，后台修改不持久化
type CatalogService struct {
	mu          sync.RWMutex
	products    []model.Product
	sellers     []model.Seller
	categories  []model.Category
	coupons     []model.Coupon
	adminOrders []model.Order

	now    func() time.Time
	logger *zap.Logger
}

// NewCatalogService 由种子目录构建
func NewCatalogService(c *seed.Catalog, logger *zap.Logger) (*CatalogService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CatalogService{
		now:    time.Now,
		logger: logger.With(zap.String("component", "catalog")),
	}

	sellerByID := make(map[string]model.Seller, len(c.Sellers))
	for _, sl := range c.Sellers {
		m := model.Seller{
			ID:          sl.ID,
			Name:        sl.Name,
			Rating:      sl.Rating,
			Followers:   sl.Followers,
			Logo:        sl.Logo,
			Banner:      sl.Banner,
			IsOfficial:  sl.IsOfficial,
			JoinedDate:  sl.JoinedDate,
			Description: sl.Description,
		}
		sellerByID[sl.ID] = m
		s.sellers = append(s.sellers, m)
	}

	reviews := make([]model.Review, 0, len(c.Reviews))
	for _, r := range c.Reviews {
		reviews = append(reviews, model.Review{
			ID:       r.ID,
			UserName: r.UserName,
			Rating:   r.Rating,
			Comment:  r.Comment,
			Date:     r.Date,
			Verified: r.Verified,
			Images:   r.Images,
		})
	}

	for _, p := range c.Products {
		sl, ok := sellerByID[p.SellerID]
		if !ok {
			return nil, fmt.Errorf("商品 %d 引用了不存在的卖家 %s", p.ID, p.SellerID)
		}
		prod := model.Product{
			ID:          p.ID,
			Title:       p.Title,
			Price:       p.Price,
			OldPrice:    p.OldPrice,
			Rating:      p.Rating,
			Reviews:     p.Reviews,
			Image:       p.Image,
			Images:      galleryFor(p.ID, p.Image),
			Category:    p.Category,
			Description: p.Description,
			Badges:      p.Badges,
			Brand:       p.Brand,
			InStock:     p.InStock,
			CreatedAt:   p.CreatedAt,
			Seller:      &sl,
			ReviewsList: reviews,
		}
		s.products = append(s.products, prod.Clone())
	}

	for _, ct := range c.Categories {
		s.categories = append(s.categories, model.Category{ID: ct.ID, Name: ct.Name, Icon: ct.Icon})
	}

	for _, cp := range c.Coupons {
		dt, err := model.ParseDiscountType(cp.DiscountType)
		if err != nil {
			return nil, fmt.Errorf("优惠券 %s: %w", cp.Code, err)
		}
		s.coupons = append(s.coupons, model.Coupon{
			ID:           cp.ID,
			Code:         strings.ToUpper(cp.Code),
			DiscountType: dt,
			Value:        cp.Value,
			ExpiryDate:   cp.ExpiryDate,
			IsActive:     cp.IsActive,
			UsageCount:   cp.UsageCount,
		})
	}

	productByID := make(map[int64]model.Product, len(s.products))
	for _, p := range s.products {
		productByID[p.ID] = p
	}
	start := s.now()
	for _, o := range c.AdminOrders {
		st, err := model.ParseOrderStatus(o.Status)
		if err != nil {
			return nil, fmt.Errorf("订单 %s: %w", o.ID, err)
		}
		order := model.Order{
			ID:              o.ID,
			Date:            start.AddDate(0, 0, -o.AgeDays),
			Status:          st,
			Total:           o.Total,
			CustomerName:    o.CustomerName,
			ShippingAddress: o.ShippingAddress,
			Items:           []model.CartItem{},
		}
		for _, pid := range o.ProductIDs {
			if p, ok := productByID[pid]; ok {
				order.Items = append(order.Items, model.CartItem{Product: p.Clone(), Quantity: 1})
			}
		}
		s.adminOrders = append(s.adminOrders, order)
	}

	s.logger.Info("商品目录已加载",
		zap.Int("products", len(s.products)),
		zap.Int("sellers", len(s.sellers)),
		zap.Int("coupons", len(s.coupons)),
	)
	return s, nil
}

// galleryFor 种子商品的图集：主图加三张占位图
func galleryFor(id int64, image string) []string {
	return []string{
		image,
		fmt.Sprintf("https://picsum.photos/id/%d/400/400", id+10),
		fmt.Sprintf("https://picsum.photos/id/%d/400/400", id+20),
		fmt.Sprintf("https://picsum.photos/id/%d/400/400", id+30),
	}
}

// ==================== 查询 ====================

// Products 全部商品（副本）
func (s *CatalogService) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

func (s *CatalogService) Product(id int64) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return model.Product{}, ErrProductNotFound
}

func (s *CatalogService) Sellers() []model.Seller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Seller(nil), s.sellers...)
}

func (s *CatalogService) Seller(id string) (model.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sl := range s.sellers {
		if sl.ID == id {
			return sl, nil
		}
	}
	return model.Seller{}, ErrSellerNotFound
}

func (s *CatalogService) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Category(nil), s.categories...)
}

func (s *CatalogService) Coupons() []model.Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Coupon(nil), s.coupons...)
}

// AdminOrders 后台订单列表，最新在前
func (s *CatalogService) AdminOrders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, len(s.adminOrders))
	for i, o := range s.adminOrders {
		out[i] = o.Clone()
	}
	return out
}

// ==================== 商品维护 ====================

// AddProduct 新商品插到最前，返回补全后的商品
// ID 为 0 或已被占用时按当前毫秒时间分配，冲突则顺延
func (s *CatalogService) AddProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if p.ID == 0 || s.productIndex(p.ID) >= 0 {
		p.ID = now.UnixMilli()
		for s.productIndex(p.ID) >= 0 {
			p.ID++
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.Seller == nil {
		sl := AdminSeller
		p.Seller = &sl
	}
	if len(p.Images) == 0 && p.Image != "" {
		p.Images = []string{p.Image}
	}
	if p.ReviewsList == nil {
		p.ReviewsList = []model.Review{}
	}

	s.products = append([]model.Product{p.Clone()}, s.products...)

	s.logger.Info("新增商品", zap.Int64("product_id", p.ID), zap.String("title", p.Title))
	return p
}

// productIndex 调用方持有锁，不存在返回 -1
func (s *CatalogService) productIndex(id int64) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// UpdateProduct 按 ID 整体替换
func (s *CatalogService) UpdateProduct(p model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p.Clone()
			return nil
		}
	}
	return ErrProductNotFound
}

// DeleteProduct 按 ID 删除，不存在时无操作
func (s *CatalogService) DeleteProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.products[:0]
	for _, p := range s.products {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.products = out
}

// ==================== 优惠券 ====================

// AddCoupon 新增优惠券，优惠码统一转大写
func (s *CatalogService) AddCoupon(c model.Coupon) (model.Coupon, error) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return model.Coupon{}, fmt.Errorf("%w: 优惠码为空", ErrInvalidCoupon)
	}
	if _, err := model.ParseDiscountType(string(c.DiscountType)); err != nil {
		return model.Coupon{}, fmt.Errorf("%w: %v", ErrInvalidCoupon, err)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.coupons {
		if existing.Code == c.Code {
			return model.Coupon{}, ErrCouponExists
		}
	}
	s.coupons = append(s.coupons, c)
	return c, nil
}

func (s *CatalogService) DeleteCoupon(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.coupons[:0]
	for _, c := range s.coupons {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.coupons = out
}

// ExpireCoupons 停用已过期的优惠券，返回本次停用数量
func (s *CatalogService) ExpireCoupons(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.coupons {
		c := &s.coupons[i]
		if c.IsActive && !c.ExpiryDate.IsZero() && c.ExpiryDate.Before(now) {
			c.IsActive = false
			n++
		}
	}
	return n
}

// ==================== 订单与卖家 ====================

// UpdateOrderStatus 任意状态之间均可切换
func (s *CatalogService) UpdateOrderStatus(id string, status model.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("无效的订单状态: %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.adminOrders {
		if s.adminOrders[i].ID == id {
			s.adminOrders[i].Status = status
			return nil
		}
	}
	return ErrOrderNotFound
}

// AddAdminOrder 插到最前
func (s *CatalogService) AddAdminOrder(o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminOrders = append([]model.Order{o.Clone()}, s.adminOrders...)
}

// VerifySeller 切换官方认证标记，同步到商品内嵌的卖家快照
func (s *CatalogService) VerifySeller(id string) (model.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.sellers {
		if s.sellers[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Seller{}, ErrSellerNotFound
	}

	s.sellers[idx].IsOfficial = !s.sellers[idx].IsOfficial
	official := s.sellers[idx].IsOfficial
	for i := range s.products {
		if s.products[i].Seller != nil && s.products[i].Seller.ID == id {
			sl := *s.products[i].Seller
			sl.IsOfficial = official
			s.products[i].Seller = &sl
		}
	}
	return s.sellers[idx], nil
}

// ==================== 看板 ====================

// Dashboard 后台看板统计
type Dashboard struct {
	TotalRevenue    float64 `json:"totalRevenue"`
	TotalOrders     int     `json:"totalOrders"`
	PendingOrders   int     `json:"pendingOrders"`
	TotalProducts   int     `json:"totalProducts"`
	TotalSellers    int     `json:"totalSellers"`
	OfficialSellers int     `json:"officialSellers"`
	ActiveCoupons   int     `json:"activeCoupons"`
}

func (s *CatalogService) Dashboard() Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revenue := decimal.Zero
	d := Dashboard{
		TotalOrders:   len(s.adminOrders),
		TotalProducts: len(s.products),
		TotalSellers:  len(s.sellers),
	}
	for _, o := range s.adminOrders {
		revenue = revenue.Add(decimal.NewFromFloat(o.Total))
		if o.Status == model.OrderStatusProcessing {
			d.PendingOrders++
		}
	}
	for _, sl := range s.sellers {
		if sl.IsOfficial {
			d.OfficialSellers++
		}
	}
	for _, c := range s.coupons {
		if c.IsActive {
			d.ActiveCoupons++
		}
	}
	d.TotalRevenue = revenue.InexactFloat64()
	return d
}

func cloneProducts(in []model.Product) []model.Product {
	out := make([]model.Product, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
