package controller

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lumina_shop/internal/api/dto"
	"lumina_shop/internal/model"
	"lumina_shop/internal/service"
)

// 详情页相似/同卖家推荐数量
const detailListLimit = 4

// StorefrontController 前台目录浏览
type StorefrontController struct {
	catalog  *service.CatalogService
	shoppers *service.ShopperService
	locale   *service.LocaleService
	logger   *zap.Logger
}

func NewStorefrontController(catalog *service.CatalogService, shoppers *service.ShopperService, locale *service.LocaleService, logger *zap.Logger) *StorefrontController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorefrontController{
		catalog:  catalog,
		shoppers: shoppers,
		locale:   locale,
		logger:   logger,
	}
}

// Categories 分类列表
// @Router /api/categories [get]
func (c *StorefrontController) Categories(ctx *gin.Context) {
	respondOK(ctx, "ok", c.catalog.Categories())
}

// Home 首页：热门、推荐、最近浏览、限时特卖
// @Router /api/home [get]
func (c *StorefrontController) Home(ctx *gin.Context) {
	state := sessionState(ctx, c.shoppers, c.logger)
	products := c.catalog.Products()
	recent := state.RecentlyViewed()
	currency, lang := displayPrefs(ctx)

	respondOK(ctx, "ok", dto.HomeResp{
		Categories:     c.catalog.Categories(),
		Trending:       c.views(service.TrendingProducts(products), currency, lang),
		Recommended:    c.views(service.RecommendedProducts(products, recent), currency, lang),
		RecentlyViewed: c.views(service.RecentlyViewedProducts(products, recent), currency, lang),
		FlashSales:     c.views(service.FlashSaleProducts(products), currency, lang),
	})
}

// Products 商品列表，支持搜索、筛选、排序
// @Param search query string false "搜索关键词，非空时忽略分类"
// @Param category query string false "分类，all 表示全部"
// @Param min_price query number false "最低价"
// @Param max_price query number false "最高价"
// @Param brands query string false "品牌，逗号分隔"
// @Param sort query string false "featured|price-asc|price-desc|rating|newest"
// @Router /api/products [get]
func (c *StorefrontController) Products(ctx *gin.Context) {
	var req dto.ProductListReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	filter := service.ProductFilter{
		Search:      strings.TrimSpace(req.Search),
		Category:    req.Category,
		MinRating:   req.MinRating,
		InStockOnly: req.InStock,
	}
	var ok bool
	if filter.MinPrice, ok = optionalFloat(ctx, "min_price"); !ok {
		return
	}
	if filter.MaxPrice, ok = optionalFloat(ctx, "max_price"); !ok {
		return
	}
	for _, b := range strings.Split(req.Brands, ",") {
		if b = strings.TrimSpace(b); b != "" {
			filter.Brands = append(filter.Brands, b)
		}
	}

	products := c.catalog.Products()
	sortKey := service.ParseSortKey(req.Sort)
	list := service.ApplyView(products, filter, sortKey)

	currency, lang := service.ParseCurrency(req.Currency), service.ParseLanguage(req.Lang)
	respondOK(ctx, "ok", dto.ProductListResp{
		Total:  len(list),
		Sort:   string(sortKey),
		Brands: service.AvailableBrands(products, req.Category),
		List:   c.views(list, currency, lang),
	})
}

// Brands 分类下可选品牌
// @Router /api/products/brands [get]
func (c *StorefrontController) Brands(ctx *gin.Context) {
	respondOK(ctx, "ok", service.AvailableBrands(c.catalog.Products(), ctx.Query("category")))
}

// ProductDetail 商品详情，同时记录最近浏览
// @Router /api/products/{id} [get]
func (c *StorefrontController) ProductDetail(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	p, err := c.catalog.Product(id)
	if err != nil {
		respondError(ctx, http.StatusNotFound, "Product not found")
		return
	}

	state := sessionState(ctx, c.shoppers, c.logger)
	if err := state.AddRecentlyViewed(ctx.Request.Context(), id); err != nil {
		c.logger.Warn("记录最近浏览失败", zap.Int64("product_id", id), zap.Error(err))
	}

	products := c.catalog.Products()
	currency, lang := displayPrefs(ctx)
	stats := service.ComputeReviewStats(p)
	from, to := service.DeliveryWindow(time.Now())

	respondOK(ctx, "ok", dto.ProductDetailResp{
		Product:        c.view(p, currency, lang),
		InWishlist:     state.IsInWishlist(id),
		Reviews:        dto.ReviewSummary{Total: stats.Total, Average: stats.Average, Counts: stats.Counts},
		Delivery:       dto.DeliveryWindow{From: from, To: to},
		Similar:        c.views(service.SimilarProducts(products, p, detailListLimit), currency, lang),
		MoreFromSeller: c.views(service.MoreFromSeller(products, p, detailListLimit), currency, lang),
	})
}

// Seller 卖家店铺页，q 为店内搜索
// @Router /api/sellers/{id} [get]
func (c *StorefrontController) Seller(ctx *gin.Context) {
	seller, err := c.catalog.Seller(ctx.Param("id"))
	if err != nil {
		respondError(ctx, http.StatusNotFound, "Seller not found")
		return
	}

	currency, lang := displayPrefs(ctx)
	products := service.SellerProducts(c.catalog.Products(), seller.ID, ctx.Query("q"))
	respondOK(ctx, "ok", dto.SellerResp{
		Seller:   seller,
		Products: c.views(products, currency, lang),
	})
}

// ==================== 辅助 ====================

func (c *StorefrontController) view(p model.Product, currency service.Currency, lang service.Language) dto.ProductView {
	v := dto.ProductView{
		Product:         p,
		DisplayPrice:    c.locale.FormatPrice(p.Price, currency, lang),
		DiscountPercent: service.DiscountPercent(p),
	}
	if p.OldPrice != nil {
		v.DisplayOldPrice = c.locale.FormatPrice(*p.OldPrice, currency, lang)
	}
	return v
}

func (c *StorefrontController) views(products []model.Product, currency service.Currency, lang service.Language) []dto.ProductView {
	out := make([]dto.ProductView, len(products))
	for i, p := range products {
		out[i] = c.view(p, currency, lang)
	}
	return out
}

func displayPrefs(ctx *gin.Context) (service.Currency, service.Language) {
	return service.ParseCurrency(ctx.Query("currency")), service.ParseLanguage(ctx.Query("lang"))
}

// optionalFloat 空值返回 nil；格式错误时已写入 400 响应
func optionalFloat(ctx *gin.Context, name string) (*float64, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+name)
		return nil, false
	}
	return &v, true
}
