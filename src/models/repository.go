package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tinhk-server-go/src/core/types"
	"tinhk-server-go/src/core/utils"
)

// ErrPersistence 数据库写入失败
var ErrPersistence = errors.New("案例持久化失败")

// CaseRepository 案例分析结果仓库
type CaseRepository struct {
	db     *gorm.DB
	logger *utils.Logger
}

// NewCaseRepository 创建案例仓库
func NewCaseRepository(db *gorm.DB, logger *utils.Logger) *CaseRepository {
	return &CaseRepository{
		db:     db,
		logger: logger,
	}
}

// StoreCaseAnalysis 在一个事务里插入一条案例记录，返回生成的ID。
// 任何失败都会整体回滚，不留半行数据。
func (r *CaseRepository) StoreCaseAnalysis(ctx context.Context, title string, imageURLs []string, analysis *types.CaseAnalysis) (uint, error) {
	images, err := json.Marshal(imageURLs)
	if err != nil {
		return 0, fmt.Errorf("%w: 序列化图片列表失败: %v", ErrPersistence, err)
	}
	keypoints, err := json.Marshal(analysis.KeyPoints)
	if err != nil {
		return 0, fmt.Errorf("%w: 序列化要点失败: %v", ErrPersistence, err)
	}
	translations, err := json.Marshal(analysis.Translations)
	if err != nil {
		return 0, fmt.Errorf("%w: 序列化翻译列表失败: %v", ErrPersistence, err)
	}

	now := time.Now().UTC()
	record := &CaseRecord{
		Title:        title,
		Images:       images,
		Summary:      analysis.Summary,
		Keypoints:    keypoints,
		Translations: translations,
		// 只保留日期精度
		CreatedAt: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	r.logger.Info(fmt.Sprintf("案例分析已入库: %s", title), map[string]interface{}{
		"case_id":      record.ID,
		"image_count":  len(imageURLs),
		"translations": len(analysis.Translations),
	})

	return record.ID, nil
}

// GetCase 按ID读取一条案例记录
func (r *CaseRepository) GetCase(ctx context.Context, id uint) (*CaseRecord, error) {
	record := &CaseRecord{}
	if err := r.db.WithContext(ctx).First(record, id).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return record, nil
}
