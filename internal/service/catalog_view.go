package service

import (
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"lumina_shop/internal/model"
)

// ==================== 筛选 ====================

// ProductFilter 商品筛选条件，各条件之间为 AND
type ProductFilter struct {
	Search      string   // 非空时替代分类筛选
	Category    string   // 空或 "all" 表示不限
	MinPrice    *float64 // 含边界
	MaxPrice    *float64 // 含边界
	Brands      []string // 空表示不限
	MinRating   float64  // 0 表示不限
	InStockOnly bool
}

// SortKey 排序方式
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
)

// ParseSortKey 未知值按 featured 处理
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortPriceAsc, SortPriceDesc, SortRating, SortNewest:
		return SortKey(s)
	}
	return SortFeatured
}

// FilterProducts 返回满足全部条件的商品，保持输入顺序
func FilterProducts(products []model.Product, f ProductFilter) []model.Product {
	query := strings.ToLower(f.Search)
	out := make([]model.Product, 0, len(products))

	for _, p := range products {
		if query != "" {
			if !matchesSearch(p, query) {
				continue
			}
		} else if f.Category != "" && f.Category != model.CategoryAll && p.Category != f.Category {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if len(f.Brands) > 0 && !slices.Contains(f.Brands, p.Brand) {
			continue
		}
		if f.MinRating > 0 && p.Rating < f.MinRating {
			continue
		}
		if f.InStockOnly && !p.InStock {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p model.Product, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(p.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Description), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Category), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Brand), lowerQuery)
}

// SortProducts 稳定排序，返回新切片
func SortProducts(products []model.Product, key SortKey) []model.Product {
	out := append([]model.Product(nil), products...)

	var less func(a, b model.Product) bool
	switch key {
	case SortPriceAsc:
		less = func(a, b model.Product) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b model.Product) bool { return a.Price > b.Price }
	case SortRating:
		less = func(a, b model.Product) bool { return a.Rating > b.Rating }
	case SortNewest:
		less = func(a, b model.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// ApplyView 先筛选后排序
func ApplyView(products []model.Product, f ProductFilter, key SortKey) []model.Product {
	return SortProducts(FilterProducts(products, f), key)
}

// AvailableBrands 分类下的品牌，去重并排序
func AvailableBrands(products []model.Product, category string) []string {
	seen := make(map[string]bool)
	brands := []string{}
	for _, p := range products {
		if category != "" && category != model.CategoryAll && p.Category != category {
			continue
		}
		if !seen[p.Brand] {
			seen[p.Brand] = true
			brands = append(brands, p.Brand)
		}
	}
	sort.Strings(brands)
	return brands
}

// ==================== 推荐 ====================

const (
	trendingMinRating  = 4.5
	trendingMinReviews = 100
	homeListLimit      = 6
	fallbackMinRating  = 4.0
	fallbackOffset     = 10
	flashSaleLimit     = 8
)

// TrendingProducts 评分 >= 4.5 且评论数 > 100，按评论数降序取前 6
func TrendingProducts(products []model.Product) []model.Product {
	out := make([]model.Product, 0, homeListLimit)
	for _, p := range products {
		if p.Rating >= trendingMinRating && p.Reviews > trendingMinReviews {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Reviews > out[j].Reviews })
	if len(out) > homeListLimit {
		out = out[:homeListLimit]
	}
	return out
}

// FlashSaleProducts 限时特卖取目录前 8 个
func FlashSaleProducts(products []model.Product) []model.Product {
	n := min(len(products), flashSaleLimit)
	return append([]model.Product(nil), products[:n]...)
}

// RecentlyViewedProducts 按浏览顺序解析商品，忽略已不存在的 ID
func RecentlyViewedProducts(products []model.Product, recent []int64) []model.Product {
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]model.Product, 0, len(recent))
	for _, id := range recent {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// RecommendedProducts 最近浏览中出现最多的分类里取 6 个未浏览商品
// 频次相同时取在浏览列表中最后出现的分类（即更早浏览的那个）
// 无浏览记录时退化为评分 >= 4.0 商品的第 11~16 个
func RecommendedProducts(products []model.Product, recent []int64) []model.Product {
	viewed := RecentlyViewedProducts(products, recent)

	if len(recent) > 0 && len(viewed) > 0 {
		counts := make(map[string]int)
		for _, p := range viewed {
			counts[p.Category]++
		}
		top, best := "", 0
		for _, p := range viewed {
			if counts[p.Category] >= best {
				top, best = p.Category, counts[p.Category]
			}
		}

		out := make([]model.Product, 0, homeListLimit)
		for _, p := range products {
			if p.Category == top && !slices.Contains(recent, p.ID) {
				out = append(out, p)
				if len(out) == homeListLimit {
					break
				}
			}
		}
		return out
	}

	rated := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.Rating >= fallbackMinRating {
			rated = append(rated, p)
		}
	}
	if len(rated) <= fallbackOffset {
		return []model.Product{}
	}
	end := min(len(rated), fallbackOffset+homeListLimit)
	return append([]model.Product(nil), rated[fallbackOffset:end]...)
}

// ==================== 商品详情 ====================

// SimilarProducts 同分类的其他商品
func SimilarProducts(products []model.Product, p model.Product, limit int) []model.Product {
	return takeWhere(products, limit, func(o model.Product) bool {
		return o.Category == p.Category && o.ID != p.ID
	})
}

// MoreFromSeller 同卖家的其他商品
func MoreFromSeller(products []model.Product, p model.Product, limit int) []model.Product {
	sellerID := p.SellerID()
	return takeWhere(products, limit, func(o model.Product) bool {
		return o.SellerID() == sellerID && o.ID != p.ID
	})
}

// SellerProducts 卖家店铺内按标题搜索
func SellerProducts(products []model.Product, sellerID, query string) []model.Product {
	q := strings.ToLower(query)
	return takeWhere(products, -1, func(o model.Product) bool {
		return o.SellerID() == sellerID && strings.Contains(strings.ToLower(o.Title), q)
	})
}

func takeWhere(products []model.Product, limit int, keep func(model.Product) bool) []model.Product {
	out := []model.Product{}
	if limit == 0 {
		return out
	}
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// DiscountPercent 折扣百分比，四舍五入；无原价时为 0
func DiscountPercent(p model.Product) int {
	if p.OldPrice == nil || *p.OldPrice <= 0 {
		return 0
	}
	return int(math.Round((*p.OldPrice - p.Price) / *p.OldPrice * 100))
}

// ReviewStats 评论统计
type ReviewStats struct {
	Total   int         `json:"total"`
	Average float64     `json:"average"`
	Counts  map[int]int `json:"counts"` // 星级 -> 条数
}

func ComputeReviewStats(p model.Product) ReviewStats {
	stats := ReviewStats{Counts: map[int]int{5: 0, 4: 0, 3: 0, 2: 0, 1: 0}}
	sum := 0.0
	for _, r := range p.ReviewsList {
		sum += r.Rating
		star := int(math.Floor(r.Rating))
		if star >= 1 && star <= 5 {
			stats.Counts[star]++
		}
	}
	stats.Total = len(p.ReviewsList)
	if stats.Total > 0 {
		stats.Average = sum / float64(stats.Total)
	}
	return stats
}

// DeliveryWindow 预计送达区间：2~5 天后
func DeliveryWindow(now time.Time) (from, to time.Time) {
	return now.AddDate(0, 0, 2), now.AddDate(0, 0, 5)
}
