package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumina_shop/internal/model"
)

// ErrEmptyCart 购物车为空不能下单
var ErrEmptyCart = errors.New("购物车为空")

// ShippingDetails 收货信息，支付信息不处理
type ShippingDetails struct {
	FullName      string `json:"fullName"`
	Phone         string `json:"phone"`
	Street        string `json:"street"`
	City          string `json:"city"`
	State         string `json:"state"`
	PaymentMethod string `json:"paymentMethod"` // card | cod
}

// Address 单行地址
func (d ShippingDetails) Address() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Street, d.City, d.State} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// CheckoutService 模拟下单：等待固定延迟后生成订单并清空购物车
type CheckoutService struct {
	delay  time.Duration
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

func NewCheckoutService(delay time.Duration, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		delay:  delay,
		now:    time.Now,
		newID:  newOrderID,
		logger: logger.With(zap.String("component", "checkout")),
	}
}

func newOrderID() string {
	return fmt.Sprintf("LUM-%d", rand.IntN(1000000))
}

// PlaceOrder ctx 取消时不生成订单
func (s *CheckoutService) PlaceOrder(ctx context.Context, state *ShopperState, details ShippingDetails) (model.Order, error) {
	if items, _ := state.snapshotCart(); len(items) == 0 {
		return model.Order{}, ErrEmptyCart
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.Order{}, ctx.Err()
		case <-timer.C:
		}
	}

	// 延迟期间购物车可能被修改，以延迟结束时为准
	order, persistErr := state.checkoutCart(ctx, func(items []model.CartItem, total float64) model.Order {
		return model.Order{
			ID:              s.newID(),
			Date:            s.now(),
			Status:          model.OrderStatusProcessing,
			Total:           total,
			Items:           items,
			CustomerName:    strings.TrimSpace(details.FullName),
			ShippingAddress: details.Address(),
		}
	})
	if errors.Is(persistErr, ErrEmptyCart) {
		return model.Order{}, ErrEmptyCart
	}

	s.logger.Info("订单已生成",
		zap.String("session", state.SessionID()),
		zap.String("order_id", order.ID),
		zap.Float64("total", order.Total),
		zap.Int("items", len(order.Items)),
	)
	return order, persistErr
}
