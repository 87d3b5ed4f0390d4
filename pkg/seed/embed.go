package seed

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"
)

// Files 嵌入的种子数据
//
//go:embed catalog.json translations.json
var Files embed.FS

// ==================== 目录种子 ====================

// Catalog 启动时加载的商品目录快照
type Catalog struct {
	Categories  []Category   `json:"categories"`
	Sellers     []Seller     `json:"sellers"`
	Reviews     []Review     `json:"reviews"`
	Products    []Product    `json:"products"`
	Coupons     []Coupon     `json:"coupons"`
	AdminOrders []AdminOrder `json:"adminOrders"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

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

type Review struct {
	ID       string    `json:"id"`
	UserName string    `json:"userName"`
	Rating   float64   `json:"rating"`
	Comment  string    `json:"comment"`
	Date     time.Time `json:"date"`
	Verified bool      `json:"verified"`
	Images   []string  `json:"images,omitempty"`
}

type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	OldPrice    *float64  `json:"oldPrice,omitempty"`
	Rating      float64   `json:"rating"`
	Reviews     int       `json:"reviews"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Badges      []string  `json:"badges,omitempty"`
	Brand       string    `json:"brand"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
	SellerID    string    `json:"sellerId"`
}

type Coupon struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	DiscountType string    `json:"discountType"`
	Value        float64   `json:"value"`
	ExpiryDate   time.Time `json:"expiryDate"`
	IsActive     bool      `json:"isActive"`
	UsageCount   int       `json:"usageCount"`
}

// AdminOrder 后台模拟订单，AgeDays 为相对启动时间的天数
type AdminOrder struct {
	ID              string  `json:"id"`
	AgeDays         int     `json:"ageDays"`
	Total           float64 `json:"total"`
	Status          string  `json:"status"`
	CustomerName    string  `json:"customerName"`
	ShippingAddress string  `json:"shippingAddress"`
	ProductIDs      []int64 `json:"productIds"`
}

// LoadCatalog 解析嵌入的 catalog.json
func LoadCatalog() (*Catalog, error) {
	data, err := Files.ReadFile("catalog.json")
	if err != nil {
		return nil, fmt.Errorf("读取种子目录失败: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析种子目录失败: %w", err)
	}
	return &c, nil
}

// LoadTranslations 解析嵌入的 translations.json (lang -> key -> text)
func LoadTranslations() (map[string]map[string]string, error) {
	data, err := Files.ReadFile("translations.json")
	if err != nil {
		return nil, fmt.Errorf("读取翻译表失败: %w", err)
	}

	table := make(map[string]map[string]string)
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("解析翻译表失败: %w", err)
	}
	return table, nil
}
