package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lumina_shop/internal/api/dto"
	"lumina_shop/internal/middleware"
	"lumina_shop/internal/model"
	"lumina_shop/internal/repository"
	"lumina_shop/internal/service"
)

// 上传图片大小上限
const maxImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// AdminController 后台管理
type AdminController struct {
	admin     *service.AdminService
	catalog   *service.CatalogService
	storage   service.StorageProvider
	aiLogRepo repository.AICallLogRepository
	logger    *zap.Logger
}

func NewAdminController(
	admin *service.AdminService,
	catalog *service.CatalogService,
	storage service.StorageProvider,
	aiLogRepo repository.AICallLogRepository,
	logger *zap.Logger,
) *AdminController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminController{
		admin:     admin,
		catalog:   catalog,
		storage:   storage,
		aiLogRepo: aiLogRepo,
		logger:    logger.With(zap.String("component", "admin")),
	}
}

// ==================== 认证 ====================

// Login 后台登录
// @Router /api/admin/login [post]
func (c *AdminController) Login(ctx *gin.Context) {
	var req dto.AdminLoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	res, err := c.admin.Login(ctx.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(ctx, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, service.ErrAdminDisabled):
		respondError(ctx, http.StatusForbidden, err.Error())
		return
	case err != nil:
		respondError(ctx, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(ctx, "登录成功", res)
}

// Dashboard 看板
// @Router /api/admin/dashboard [get]
func (c *AdminController) Dashboard(ctx *gin.Context) {
	respondOK(ctx, "ok", c.catalog.Dashboard())
}

// ==================== 商品 ====================

// Products 全部商品
// @Router /api/admin/products [get]
func (c *AdminController) Products(ctx *gin.Context) {
	respondOK(ctx, "ok", c.catalog.Products())
}

// CreateProduct 新增商品
// @Router /api/admin/products [post]
func (c *AdminController) CreateProduct(ctx *gin.Context) {
	var req dto.SaveProductReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	p := req.ToProduct()
	if req.SellerID != "" {
		sl, err := c.catalog.Seller(req.SellerID)
		if err != nil {
			respondError(ctx, http.StatusBadRequest, err.Error())
			return
		}
		p.Seller = &sl
	}

	created := c.catalog.AddProduct(p)
	c.logger.Info("后台新增商品", zap.String("operator", middleware.GetUsername(ctx)), zap.Int64("product_id", created.ID))
	ctx.JSON(http.StatusCreated, gin.H{"code": 0, "message": "创建成功", "data": created})
}

// UpdateProduct 编辑商品，保留原有的创建时间、卖家和评论
// @Router /api/admin/products/{id} [put]
func (c *AdminController) UpdateProduct(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SaveProductReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	existing, err := c.catalog.Product(id)
	if err != nil {
		respondError(ctx, http.StatusNotFound, err.Error())
		return
	}

	p := req.ToProduct()
	p.ID = id
	p.CreatedAt = existing.CreatedAt
	p.Seller = existing.Seller
	p.ReviewsList = existing.ReviewsList
	if len(p.Images) == 0 {
		p.Images = existing.Images
	}
	if req.SellerID != "" {
		sl, err := c.catalog.Seller(req.SellerID)
		if err != nil {
			respondError(ctx, http.StatusBadRequest, err.Error())
			return
		}
		p.Seller = &sl
	}

	if err := c.catalog.UpdateProduct(p); err != nil {
		respondError(ctx, http.StatusNotFound, err.Error())
		return
	}
	respondOK(ctx, "更新成功", p)
}

// DeleteProduct 删除商品，并清理已上传的图片
// @Router /api/admin/products/{id} [delete]
func (c *AdminController) DeleteProduct(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if p, err := c.catalog.Product(id); err == nil && c.storage != nil {
		for _, url := range p.Images {
			// 种子图片不归存储管理，删除失败只记录
			if err := c.storage.Delete(ctx.Request.Context(), url); err != nil {
				c.logger.Debug("跳过图片删除", zap.String("url", url), zap.Error(err))
			}
		}
	}

	c.catalog.DeleteProduct(id)
	respondOK(ctx, "删除成功", nil)
}

// UploadImage 上传商品图片
// @Accept multipart/form-data
// @Param file formData file true "图片文件"
// @Router /api/admin/products/{id}/images [post]
func (c *AdminController) UploadImage(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if c.storage == nil {
		respondError(ctx, http.StatusServiceUnavailable, "未配置存储")
		return
	}

	p, err := c.catalog.Product(id)
	if err != nil {
		respondError(ctx, http.StatusNotFound, err.Error())
		return
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		respondError(ctx, http.StatusBadRequest, "缺少文件: "+err.Error())
		return
	}
	if fh.Size > maxImageSize {
		respondError(ctx, http.StatusRequestEntityTooLarge, fmt.Sprintf("图片不能超过 %d MB", maxImageSize>>20))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}

	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		respondError(ctx, http.StatusBadRequest, "不支持的图片类型: "+contentType)
		return
	}

	url, err := c.storage.Upload(ctx.Request.Context(), data, filepath.Base(fh.Filename), contentType)
	if err != nil {
		c.logger.Error("图片上传失败", zap.Int64("product_id", id), zap.Error(err))
		respondError(ctx, http.StatusInternalServerError, err.Error())
		return
	}

	p.Images = append(p.Images, url)
	if p.Image == "" {
		p.Image = url
	}
	if err := c.catalog.UpdateProduct(p); err != nil {
		respondError(ctx, http.StatusNotFound, err.Error())
		return
	}
	respondOK(ctx, "上传成功", dto.UploadImageResp{URL: url, Product: p})
}

// ==================== 订单 ====================

// Orders 后台订单
// @Router /api/admin/orders [get]
func (c *AdminController) Orders(ctx *gin.Context) {
	respondOK(ctx, "ok", c.catalog.AdminOrders())
}

// CreateOrder 录入订单
// @Router /api/admin/orders [post]
func (c *AdminController) CreateOrder(ctx *gin.Context) {
	var req dto.CreateOrderReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	status := model.OrderStatusProcessing
	if req.Status != "" {
		st, err := model.ParseOrderStatus(req.Status)
		if err != nil {
			respondError(ctx, http.StatusBadRequest, err.Error())
			return
		}
		status = st
	}

	order := model.Order{
		ID:              "ORD-" + strings.ToUpper(uuid.NewString()[:8]),
		Date:            time.Now(),
		Status:          status,
		Total:           req.Total,
		CustomerName:    req.CustomerName,
		ShippingAddress: req.ShippingAddress,
		Items:           []model.CartItem{},
	}
	for _, pid := range req.ProductIDs {
		p, err := c.catalog.Product(pid)
		if err != nil {
			respondError(ctx, http.StatusBadRequest, fmt.Sprintf("商品 %d 不存在", pid))
			return
		}
		order.Items = append(order.Items, model.CartItem{Product: p, Quantity: 1})
	}

	c.catalog.AddAdminOrder(order)
	ctx.JSON(http.StatusCreated, gin.H{"code": 0, "message": "创建成功", "data": order})
}

// UpdateOrderStatus 修改订单状态，任意状态之间可切换
// @Router /api/admin/orders/{id}/status [patch]
func (c *AdminController) UpdateOrderStatus(ctx *gin.Context) {
	var req dto.UpdateOrderStatusReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}

	if err := c.catalog.UpdateOrderStatus(ctx.Param("id"), status); err != nil {
		respondError(ctx, http.StatusNotFound, err.Error())
		return
	}
	c.logger.Info("订单状态已修改",
		zap.String("operator", middleware.GetUsername(ctx)),
		zap.String("order_id", ctx.Param("id")),
		zap.String("status", string(status)),
	)
	respondOK(ctx, "更新成功", gin.H{"id": ctx.Param("id"), "status": status})
}

// ==================== 卖家 ====================

// Sellers 卖家列表
// @Router /api/admin/sellers [get]
func (c *AdminController) Sellers(ctx *gin.Context) {
	respondOK(ctx, "ok", c.catalog.Sellers())
}

// VerifySeller 切换官方认证
// @Router /api/admin/sellers/{id}/verify [post]
func (c *AdminController) VerifySeller(ctx *gin.Context) {
	sl, err := c.catalog.VerifySeller(ctx.Param("id"))
	if err != nil {
		respondError(ctx, http.StatusNotFound, err.Error())
		return
	}
	respondOK(ctx, "ok", sl)
}

// ==================== 优惠券 ====================

// Coupons 优惠券列表
// @Router /api/admin/coupons [get]
func (c *AdminController) Coupons(ctx *gin.Context) {
	respondOK(ctx, "ok", c.catalog.Coupons())
}

// CreateCoupon 新增优惠券
// @Router /api/admin/coupons [post]
func (c *AdminController) CreateCoupon(ctx *gin.Context) {
	var req dto.CreateCouponReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	coupon, err := c.catalog.AddCoupon(model.Coupon{
		Code:         req.Code,
		DiscountType: model.DiscountType(req.DiscountType),
		Value:        req.Value,
		ExpiryDate:   req.ExpiryDate,
		IsActive:     true,
	})
	switch {
	case errors.Is(err, service.ErrCouponExists):
		respondError(ctx, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"code": 0, "message": "创建成功", "data": coupon})
}

// DeleteCoupon 删除优惠券
// @Router /api/admin/coupons/{id} [delete]
func (c *AdminController) DeleteCoupon(ctx *gin.Context) {
	c.catalog.DeleteCoupon(ctx.Param("id"))
	respondOK(ctx, "删除成功", nil)
}

// ==================== AI 用量 ====================

// AIUsage 导购助手调用统计，默认最近 7 天
// @Param days query int false "统计天数" default(7)
// @Router /api/admin/ai/usage [get]
func (c *AdminController) AIUsage(ctx *gin.Context) {
	var req dto.AIUsageReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	if req.Days == 0 {
		req.Days = 7
	}
	if c.aiLogRepo == nil {
		respondError(ctx, http.StatusServiceUnavailable, "未启用调用日志")
		return
	}

	end := time.Now()
	start := end.AddDate(0, 0, -req.Days)
	total, err := c.aiLogRepo.GetUsage(ctx.Request.Context(), start, end)
	if err != nil {
		respondError(ctx, http.StatusInternalServerError, err.Error())
		return
	}
	daily, err := c.aiLogRepo.GetDailyUsage(ctx.Request.Context(), start, end)
	if err != nil {
		respondError(ctx, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(ctx, "ok", gin.H{
		"days":  req.Days,
		"total": total,
		"daily": daily,
	})
}
