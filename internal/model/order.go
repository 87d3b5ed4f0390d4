package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ==================== 订单状态 ====================

// OrderStatus 订单状态（封闭枚举）
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses 全部合法状态
var OrderStatuses = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus 解析订单状态，大小写敏感
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("无效的订单状态: %q", s)
}

func (s OrderStatus) Valid() bool {
	_, err := ParseOrderStatus(string(s))
	return err == nil
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ==================== 订单 ====================

// Order 订单，Items 为下单时购物车快照
type Order struct {
	ID              string      `json:"id"`
	Date            time.Time   `json:"date"`
	Status          OrderStatus `json:"status"`
	Total           float64     `json:"total"`
	Items           []CartItem  `json:"items"`
	CustomerName    string      `json:"customerName,omitempty"`
	ShippingAddress string      `json:"shippingAddress,omitempty"`
}

// Clone 深拷贝
func (o Order) Clone() Order {
	out := o
	out.Items = make([]CartItem, len(o.Items))
	for i, it := range o.Items {
		out.Items[i] = it.Clone()
	}
	return out
}
