package service

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Language 界面语言
type Language string

const (
	LangEN Language = "en"
	LangAR Language = "ar"
)

// Currency 展示币种，商品价格统一以美元存储
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEGP Currency = "EGP"
)

// DefaultExchangeRate 1 USD 兑换的 EGP
const DefaultExchangeRate = 50.0

// ParseLanguage 未知值按 en 处理
func ParseLanguage(s string) Language {
	if Language(strings.ToLower(strings.TrimSpace(s))) == LangAR {
		return LangAR
	}
	return LangEN
}

// ParseCurrency 未知值按 USD 处理
func ParseCurrency(s string) Currency {
	if Currency(strings.ToUpper(strings.TrimSpace(s))) == CurrencyEGP {
		return CurrencyEGP
	}
	return CurrencyUSD
}

// ==================== LocaleService ====================

// LocaleService 价格格式化与文案翻译
type LocaleService struct {
	rate         decimal.Decimal
	translations map[Language]map[string]string
	printers     map[Language]*message.Printer
}

// NewLocaleService table 为 lang -> key -> 文案
func NewLocaleService(table map[string]map[string]string, exchangeRate float64) *LocaleService {
	if exchangeRate <= 0 {
		exchangeRate = DefaultExchangeRate
	}
	s := &LocaleService{
		rate:         decimal.NewFromFloat(exchangeRate),
		translations: make(map[Language]map[string]string, len(table)),
		printers: map[Language]*message.Printer{
			LangEN: message.NewPrinter(language.MustParse("en-US")),
			LangAR: message.NewPrinter(language.MustParse("ar-EG")),
		},
	}
	for lang, entries := range table {
		s.translations[Language(lang)] = entries
	}
	return s
}

// FormatPrice 两位小数并按语言分组，EGP 先按汇率换算
func (s *LocaleService) FormatPrice(amount float64, currency Currency, lang Language) string {
	value := decimal.NewFromFloat(amount)
	if currency == CurrencyEGP {
		value = value.Mul(s.rate)
	}

	printer, ok := s.printers[lang]
	if !ok {
		printer = s.printers[LangEN]
	}
	formatted := printer.Sprintf("%.2f", value.Round(2).InexactFloat64())

	if currency == CurrencyEGP {
		return "EGP " + formatted
	}
	return "$" + formatted
}

// Translate 找不到时返回 key 本身
func (s *LocaleService) Translate(lang Language, key string) string {
	entries, ok := s.translations[lang]
	if !ok {
		entries = s.translations[LangEN]
	}
	if text, ok := entries[key]; ok {
		return text
	}
	return key
}

// Direction 阿拉伯语从右到左
func (s *LocaleService) Direction(lang Language) string {
	if lang == LangAR {
		return "rtl"
	}
	return "ltr"
}

// ExchangeRate 当前汇率
func (s *LocaleService) ExchangeRate() float64 {
	return s.rate.InexactFloat64()
}
