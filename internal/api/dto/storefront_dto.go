package dto

import (
	"time"

	"lumina_shop/internal/model"
)

// ==================== 商品列表 ====================

// ProductListReq 商品列表查询
// min_price / max_price 为可选值，由控制器单独解析
type ProductListReq struct {
	Search    string  `form:"search"`
	Category  string  `form:"category"`
	Brands    string  `form:"brands"` // 逗号分隔
	MinRating float64 `form:"min_rating" binding:"gte=0,lte=5"`
	InStock   bool    `form:"in_stock"`
	Sort      string  `form:"sort"`
	Currency  string  `form:"currency"`
	Lang      string  `form:"lang"`
}

// ProductView 商品加展示价格
type ProductView struct {
	model.Product
	DisplayPrice    string `json:"displayPrice"`
	DisplayOldPrice string `json:"displayOldPrice,omitempty"`
	DiscountPercent int    `json:"discountPercent"`
}

// ProductListResp 商品列表响应
type ProductListResp struct {
	Total  int           `json:"total"`
	Sort   string        `json:"sort"`
	Brands []string      `json:"brands"`
	List   []ProductView `json:"list"`
}

// HomeResp 首页各区块
type HomeResp struct {
	Categories     []model.Category `json:"categories"`
	Trending       []ProductView    `json:"trending"`
	Recommended    []ProductView    `json:"recommended"`
	RecentlyViewed []ProductView    `json:"recentlyViewed"`
	FlashSales     []ProductView    `json:"flashSales"`
}

// ==================== 商品详情 ====================

// DeliveryWindow 预计送达区间
type DeliveryWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ReviewSummary 评论统计
type ReviewSummary struct {
	Total   int         `json:"total"`
	Average float64     `json:"average"`
	Counts  map[int]int `json:"counts"`
}

// ProductDetailResp 商品详情
type ProductDetailResp struct {
	Product        ProductView    `json:"product"`
	InWishlist     bool           `json:"inWishlist"`
	Reviews        ReviewSummary  `json:"reviews"`
	Delivery       DeliveryWindow `json:"delivery"`
	Similar        []ProductView  `json:"similar"`
	MoreFromSeller []ProductView  `json:"moreFromSeller"`
}

// SellerResp 卖家店铺页
type SellerResp struct {
	Seller   model.Seller  `json:"seller"`
	Products []ProductView `json:"products"`
}

// ==================== 语言与价格 ====================

// PriceReq 价格格式化
type PriceReq struct {
	Amount   float64 `form:"amount" binding:"gte=0"`
	Currency string  `form:"currency"`
	Lang     string  `form:"lang"`
}

// TranslateReq 文案翻译
type TranslateReq struct {
	Key  string `form:"key" binding:"required"`
	Lang string `form:"lang"`
}
