package model

import "time"

type Number struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Value     int64     `gorm:"column:value;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (Number) TableName() string {
	return "numbers"
}
