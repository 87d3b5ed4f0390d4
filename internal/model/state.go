package model

import (
	"time"

	"gorm.io/datatypes"
)

// StateEntry 购物状态键值行，键形如 "<session>:lumina-cart"
type StateEntry struct {
	Key       string         `gorm:"column:state_key;primaryKey;size:191;comment:状态键"`
	Value     datatypes.JSON `gorm:"comment:JSON值"`
	UpdatedAt time.Time
}

func (StateEntry) TableName() string {
	return "shopper_states"
}
