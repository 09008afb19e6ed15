package models

import (
	"time"

	"gorm.io/datatypes"
)

// CaseRecord 一条聊天截图案例的分析结果（只插入，不更新不删除）
type CaseRecord struct {
	ID           uint           `gorm:"primaryKey"`
	Title        string         `gorm:"type:text;not null"`
	Images       datatypes.JSON // 图片URL数组，保持客户端提交顺序
	Summary      string         `gorm:"type:text"`
	Keypoints    datatypes.JSON // markdown要点，JSON字符串
	Translations datatypes.JSON // 翻译条目数组
	CreatedAt    time.Time      `gorm:"type:date"` // 只保留日期精度
}

// TableName 沿用线上Python版本的表名
func (CaseRecord) TableName() string {
	return "viet_cases"
}
