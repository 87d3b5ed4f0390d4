package model

import "time"

// ==================== 商品 ====================

// Product 商品，内嵌卖家快照与评论列表
type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	OldPrice    *float64  `json:"oldPrice,omitempty"` // 折扣前价格
	Rating      float64   `json:"rating"`
	Reviews     int       `json:"reviews"` // 评论数
	Image       string    `json:"image"`
	Images      []string  `json:"images,omitempty"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Badges      []string  `json:"badges,omitempty"`
	Brand       string    `json:"brand"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
	Seller      *Seller   `json:"seller,omitempty"`
	ReviewsList []Review  `json:"reviewsList,omitempty"`
}

// Clone 深拷贝，切片与指针字段不共享
func (p Product) Clone() Product {
	out := p
	if p.OldPrice != nil {
		v := *p.OldPrice
		out.OldPrice = &v
	}
	if p.Seller != nil {
		s := *p.Seller
		out.Seller = &s
	}
	out.Images = append([]string(nil), p.Images...)
	out.Badges = append([]string(nil), p.Badges...)
	if p.ReviewsList != nil {
		out.ReviewsList = make([]Review, len(p.ReviewsList))
		for i, r := range p.ReviewsList {
			r.Images = append([]string(nil), r.Images...)
			out.ReviewsList[i] = r
		}
	}
	return out
}

// SellerID 返回所属卖家ID，无卖家时为空
func (p *Product) SellerID() string {
	if p.Seller == nil {
		return ""
	}
	return p.Seller.ID
}

// Review 商品评论
type Review struct {
	ID       string    `json:"id"`
	UserName string    `json:"userName"`
	Rating   float64   `json:"rating"`
	Comment  string    `json:"comment"`
	Date     time.Time `json:"date"`
	Verified bool      `json:"verified"`
	Images   []string  `json:"images,omitempty"`
}

// Seller 卖家
type Seller struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Rating      float64   `json:"rating"`
	Followers   int       `json:"followers"`
	Logo        string    `json:"logo"`
	Banner      string    `json:"banner"`
	IsOfficial  bool      `json:"isOfficial"`
	JoinedDate  time.Time `json:"joinedDate"`
	Description string    `json:"description"`
}

// Category 商品分类，"all" 为伪分类
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

const CategoryAll = "all"

// ==================== 购物车 ====================

// CartItem 购物车行项目，同一商品只有一行
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Clone 深拷贝
func (ci CartItem) Clone() CartItem {
	return CartItem{Product: ci.Product.Clone(), Quantity: ci.Quantity}
}
