package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DiscountType 优惠类型（封闭枚举）
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// ParseDiscountType 解析优惠类型
func ParseDiscountType(s string) (DiscountType, error) {
	switch DiscountType(s) {
	case DiscountPercentage, DiscountFixed:
		return DiscountType(s), nil
	}
	return "", fmt.Errorf("无效的优惠类型: %q", s)
}

func (d *DiscountType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseDiscountType(raw)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Coupon 优惠券，结算流程不消费
type Coupon struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"` // 唯一，大写
	DiscountType DiscountType `json:"discountType"`
	Value        float64      `json:"value"`
	ExpiryDate   time.Time    `json:"expiryDate"`
	IsActive     bool         `json:"isActive"`
	UsageCount   int          `json:"usageCount"`
}
