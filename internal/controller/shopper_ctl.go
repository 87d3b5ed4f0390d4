package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lumina_shop/internal/api/dto"
	"lumina_shop/internal/middleware"
	"lumina_shop/internal/service"
)

// StateLoadHeader 会话状态部分恢复失败时返回失败的键
const StateLoadHeader = "X-State-Load-Failed"

// sessionState 取当前请求的会话状态
func sessionState(ctx *gin.Context, shoppers *service.ShopperService, logger *zap.Logger) *service.ShopperState {
	sessionID := middleware.GetSessionID(ctx)
	state, report := shoppers.Session(ctx.Request.Context(), sessionID)
	if !report.OK() {
		keys := report.FailedKeys()
		logger.Warn("会话状态部分恢复失败", zap.String("session", sessionID), zap.Strings("keys", keys))
		ctx.Header(StateLoadHeader, strings.Join(keys, ","))
	}
	return state
}

// ShopperController 购物车、心愿单、订单、提示
type ShopperController struct {
	catalog  *service.CatalogService
	shoppers *service.ShopperService
	checkout *service.CheckoutService
	locale   *service.LocaleService
	logger   *zap.Logger
}

func NewShopperController(
	catalog *service.CatalogService,
	shoppers *service.ShopperService,
	checkout *service.CheckoutService,
	locale *service.LocaleService,
	logger *zap.Logger,
) *ShopperController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopperController{
		catalog:  catalog,
		shoppers: shoppers,
		checkout: checkout,
		locale:   locale,
		logger:   logger,
	}
}

func (c *ShopperController) state(ctx *gin.Context) *service.ShopperState {
	return sessionState(ctx, c.shoppers, c.logger)
}

func (c *ShopperController) cartResp(ctx *gin.Context, state *service.ShopperState) dto.CartResp {
	currency, lang := displayPrefs(ctx)
	total := state.CartTotal()
	return dto.CartResp{
		Items:        state.Cart(),
		Count:        state.CartCount(),
		Total:        total,
		DisplayTotal: c.locale.FormatPrice(total, currency, lang),
	}
}

// ==================== 购物车 ====================

// Cart 购物车
// @Router /api/cart [get]
func (c *ShopperController) Cart(ctx *gin.Context) {
	respondOK(ctx, "ok", c.cartResp(ctx, c.state(ctx)))
}

// AddCartItem 加入购物车，已存在时数量 +1
// @Router /api/cart/items [post]
func (c *ShopperController) AddCartItem(ctx *gin.Context) {
	var req dto.AddCartItemReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	p, err := c.catalog.Product(req.ProductID)
	if err != nil {
		respondError(ctx, http.StatusNotFound, err.Error())
		return
	}

	state := c.state(ctx)
	err = state.AddToCart(ctx.Request.Context(), p)
	respondMutation(ctx, "已加入购物车", c.cartResp(ctx, state), err)
}

// UpdateCartItem 修改数量
// @Router /api/cart/items/{id} [patch]
func (c *ShopperController) UpdateCartItem(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateCartItemReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	state := c.state(ctx)
	err := state.UpdateQuantity(ctx.Request.Context(), id, req.Quantity)
	respondMutation(ctx, "ok", c.cartResp(ctx, state), err)
}

// RemoveCartItem 移出购物车
// @Router /api/cart/items/{id} [delete]
func (c *ShopperController) RemoveCartItem(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	state := c.state(ctx)
	err := state.RemoveFromCart(ctx.Request.Context(), id)
	respondMutation(ctx, "已移出购物车", c.cartResp(ctx, state), err)
}

// ClearCart 清空购物车
// @Router /api/cart [delete]
func (c *ShopperController) ClearCart(ctx *gin.Context) {
	state := c.state(ctx)
	err := state.ClearCart(ctx.Request.Context())
	respondMutation(ctx, "购物车已清空", c.cartResp(ctx, state), err)
}

// ==================== 心愿单 ====================

// Wishlist 心愿单，商品按加入顺序
// @Router /api/wishlist [get]
func (c *ShopperController) Wishlist(ctx *gin.Context) {
	ids := c.state(ctx).Wishlist()
	respondOK(ctx, "ok", dto.WishlistResp{
		IDs:      ids,
		Products: service.RecentlyViewedProducts(c.catalog.Products(), ids),
	})
}

// ToggleWishlist 加入或移出心愿单
// @Router /api/wishlist/{id}/toggle [post]
func (c *ShopperController) ToggleWishlist(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	in, err := c.state(ctx).ToggleWishlist(ctx.Request.Context(), id)
	respondMutation(ctx, "ok", dto.ToggleWishlistResp{ProductID: id, InWishlist: in}, err)
}

// ==================== 订单与浏览记录 ====================

// Orders 我的订单，最新在前
// @Router /api/orders [get]
func (c *ShopperController) Orders(ctx *gin.Context) {
	respondOK(ctx, "ok", c.state(ctx).Orders())
}

// Checkout 提交订单，等待模拟支付延迟后清空购物车
// @Router /api/checkout [post]
func (c *ShopperController) Checkout(ctx *gin.Context) {
	var req dto.CheckoutReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	state := c.state(ctx)
	order, err := c.checkout.PlaceOrder(ctx.Request.Context(), state, service.ShippingDetails{
		FullName:      req.FullName,
		Phone:         req.Phone,
		Street:        req.Street,
		City:          req.City,
		State:         req.State,
		PaymentMethod: req.PaymentMethod,
	})
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(ctx, http.StatusRequestTimeout, "下单已取消")
		return
	}
	if err == nil {
		ctx.JSON(http.StatusCreated, gin.H{"code": 0, "message": "下单成功", "data": order})
		return
	}
	respondMutation(ctx, "下单成功", order, err)
}

// RecentlyViewed 最近浏览，最新在前
// @Router /api/recently-viewed [get]
func (c *ShopperController) RecentlyViewed(ctx *gin.Context) {
	ids := c.state(ctx).RecentlyViewed()
	respondOK(ctx, "ok", service.RecentlyViewedProducts(c.catalog.Products(), ids))
}

// ==================== 提示 ====================

// Toast 当前提示
// @Router /api/toast [get]
func (c *ShopperController) Toast(ctx *gin.Context) {
	respondOK(ctx, "ok", c.state(ctx).Notifier().Current())
}

// DismissToast 关闭提示
// @Router /api/toast [delete]
func (c *ShopperController) DismissToast(ctx *gin.Context) {
	n := c.state(ctx).Notifier()
	n.Dismiss()
	respondOK(ctx, "ok", n.Current())
}
