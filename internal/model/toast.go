package model

// ToastType 提示类型
type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
	ToastInfo    ToastType = "info"
)

// Toast 单槽提示
type Toast struct {
	Message string    `json:"message"`
	Type    ToastType `json:"type"`
	Visible bool      `json:"visible"`
}
