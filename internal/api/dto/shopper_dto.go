package dto

import "lumina_shop/internal/model"

// ==================== 购物车 ====================

// AddCartItemReq 加入购物车
type AddCartItemReq struct {
	ProductID int64 `json:"productId" binding:"required"`
}

// UpdateCartItemReq 修改数量，小于 1 时忽略
type UpdateCartItemReq struct {
	Quantity int `json:"quantity"`
}

// CartResp 购物车
type CartResp struct {
	Items        []model.CartItem `json:"items"`
	Count        int              `json:"count"`
	Total        float64          `json:"total"`
	DisplayTotal string           `json:"displayTotal"`
}

// WishlistResp 心愿单
type WishlistResp struct {
	IDs      []int64         `json:"ids"`
	Products []model.Product `json:"products"`
}

// ToggleWishlistResp 切换结果
type ToggleWishlistResp struct {
	ProductID  int64 `json:"productId"`
	InWishlist bool  `json:"inWishlist"`
}

// ==================== 下单 ====================

// CheckoutReq 收货信息
type CheckoutReq struct {
	FullName      string `json:"fullName" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Street        string `json:"street" binding:"required"`
	City          string `json:"city" binding:"required"`
	State         string `json:"state"`
	PaymentMethod string `json:"paymentMethod" binding:"omitempty,oneof=card cod"`
}

// ==================== 导购对话 ====================

// ChatSendReq 发送消息
type ChatSendReq struct {
	Text string `json:"text" binding:"required"`
}

// ChatReplyResp 导购回复
type ChatReplyResp struct {
	Message  model.ChatMessage `json:"message"`
	Products []model.Product   `json:"products"`
	Degraded bool              `json:"degraded"`
}
