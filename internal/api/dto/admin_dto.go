package dto

import (
	"time"

	"lumina_shop/internal/model"
)

// ==================== 登录 ====================

// AdminLoginReq 后台登录
type AdminLoginReq struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,max=100"`
}

// ==================== 商品 ====================

// SaveProductReq 新增/编辑商品
type SaveProductReq struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Price       float64  `json:"price" binding:"gte=0"`
	OldPrice    *float64 `json:"oldPrice" binding:"omitempty,gte=0"`
	Image       string   `json:"image"`
	Images      []string `json:"images"`
	Category    string   `json:"category" binding:"required"`
	Description string   `json:"description"`
	Badges      []string `json:"badges"`
	Brand       string   `json:"brand"`
	InStock     bool     `json:"inStock"`
	Rating      float64  `json:"rating" binding:"gte=0,lte=5"`
	Reviews     int      `json:"reviews" binding:"gte=0"`
	SellerID    string   `json:"sellerId"`
}

// ToProduct 转为商品，卖家由调用方补全
func (r *SaveProductReq) ToProduct() model.Product {
	return model.Product{
		Title:       r.Title,
		Price:       r.Price,
		OldPrice:    r.OldPrice,
		Image:       r.Image,
		Images:      r.Images,
		Category:    r.Category,
		Description: r.Description,
		Badges:      r.Badges,
		Brand:       r.Brand,
		InStock:     r.InStock,
		Rating:      r.Rating,
		Reviews:     r.Reviews,
	}
}

// UploadImageResp 图片上传结果
type UploadImageResp struct {
	URL     string        `json:"url"`
	Product model.Product `json:"product"`
}

// ==================== 订单 ====================

// CreateOrderReq 后台录入订单
type CreateOrderReq struct {
	CustomerName    string  `json:"customerName" binding:"required"`
	ShippingAddress string  `json:"shippingAddress"`
	Total           float64 `json:"total" binding:"gte=0"`
	Status          string  `json:"status"`
	ProductIDs      []int64 `json:"productIds"`
}

// UpdateOrderStatusReq 修改订单状态
type UpdateOrderStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// ==================== 优惠券 ====================

// CreateCouponReq 新增优惠券
type CreateCouponReq struct {
	Code         string    `json:"code" binding:"required,max=32"`
	DiscountType string    `json:"discountType" binding:"required"`
	Value        float64   `json:"value" binding:"gt=0"`
	ExpiryDate   time.Time `json:"expiryDate" binding:"required"`
}

// ==================== AI 用量 ====================

// AIUsageReq 用量查询
type AIUsageReq struct {
	Days int `form:"days" binding:"omitempty,min=1,max=90"`
}
