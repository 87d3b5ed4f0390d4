package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lumina_shop/internal/api/dto"
	"lumina_shop/internal/service"
)

// LocaleController 价格格式化与文案翻译
type LocaleController struct {
	locale *service.LocaleService
}

func NewLocaleController(locale *service.LocaleService) *LocaleController {
	return &LocaleController{locale: locale}
}

// Price 按币种和语言格式化价格
// @Router /api/locale/price [get]
func (c *LocaleController) Price(ctx *gin.Context) {
	var req dto.PriceReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	currency, lang := service.ParseCurrency(req.Currency), service.ParseLanguage(req.Lang)
	respondOK(ctx, "ok", gin.H{
		"formatted":    c.locale.FormatPrice(req.Amount, currency, lang),
		"currency":     currency,
		"exchangeRate": c.locale.ExchangeRate(),
	})
}

// Translate 文案翻译
// @Router /api/locale/translate [get]
func (c *LocaleController) Translate(ctx *gin.Context) {
	var req dto.TranslateReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	lang := service.ParseLanguage(req.Lang)
	respondOK(ctx, "ok", gin.H{
		"text":      c.locale.Translate(lang, req.Key),
		"lang":      lang,
		"direction": c.locale.Direction(lang),
	})
}
