package models

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tinhk-server-go/src/configs"
	"tinhk-server-go/src/core/types"
	"tinhk-server-go/src/core/utils"
)

func newTestRepository(t *testing.T) *CaseRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&CaseRecord{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}

	config := &configs.Config{}
	config.Log.LogDir = t.TempDir()
	config.Log.LogFile = "test.log"
	config.Log.LogLevel = "error"
	logger, err := utils.NewLogger(config)
	if err != nil {
		t.Fatalf("创建测试日志器失败: %v", err)
	}
	t.Cleanup(func() { logger.Close() })

	return NewCaseRepository(db, logger)
}

func testAnalysis() *types.CaseAnalysis {
	return &types.CaseAnalysis{
		Translations: []types.Translation{
			{Index: 0, Author: "minh89", VietnameseText: "xin chào", EnglishText: "hello", Confidence: types.ConfidenceHigh},
			{Index: 1, Author: "trang_92", VietnameseText: "chào bạn", EnglishText: "hi there", Confidence: types.ConfidenceMedium},
		},
		Summary:   "A short greeting exchange.",
		KeyPoints: "- greeting\n- no follow-up",
	}
}

func TestStoreCaseAnalysisRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	imageURLs := []string{
		"https://cdn.test/cases/2025/03/07/a.jpg",
		"https://cdn.test/cases/2025/03/07/b.jpg",
	}
	analysis := testAnalysis()

	id, err := repo.StoreCaseAnalysis(ctx, "Olymp Trade scam", imageURLs, analysis)
	if err != nil {
		t.Fatalf("入库失败: %v", err)
	}
	if id == 0 {
		t.Fatal("入库应返回非零ID")
	}

	record, err := repo.GetCase(ctx, id)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if record.Title != "Olymp Trade scam" {
		t.Errorf("title = %q", record.Title)
	}
	if record.Summary != analysis.Summary {
		t.Errorf("summary = %q", record.Summary)
	}

	var storedImages []string
	if err := json.Unmarshal(record.Images, &storedImages); err != nil {
		t.Fatalf("解析图片列表失败: %v", err)
	}
	if len(storedImages) != 2 || storedImages[0] != imageURLs[0] || storedImages[1] != imageURLs[1] {
		t.Errorf("图片列表顺序被破坏: %v", storedImages)
	}

	var storedTranslations []types.Translation
	if err := json.Unmarshal(record.Translations, &storedTranslations); err != nil {
		t.Fatalf("解析翻译列表失败: %v", err)
	}
	if len(storedTranslations) != 2 {
		t.Fatalf("翻译条数 = %d, want 2", len(storedTranslations))
	}
	if storedTranslations[0].Index != 0 || storedTranslations[1].Index != 1 {
		t.Errorf("翻译序号错乱: %+v", storedTranslations)
	}
	if storedTranslations[1].Confidence != types.ConfidenceMedium {
		t.Errorf("confidence = %q", storedTranslations[1].Confidence)
	}

	var storedKeypoints string
	if err := json.Unmarshal(record.Keypoints, &storedKeypoints); err != nil {
		t.Fatalf("解析要点失败: %v", err)
	}
	if storedKeypoints != analysis.KeyPoints {
		t.Errorf("keypoints = %q", storedKeypoints)
	}
}

func TestStoreCaseAnalysisDateOnly(t *testing.T) {
	repo := newTestRepository(t)

	id, err := repo.StoreCaseAnalysis(context.Background(), "Case A", []string{"https://cdn.test/a.jpg"}, testAnalysis())
	if err != nil {
		t.Fatalf("入库失败: %v", err)
	}

	record, err := repo.GetCase(context.Background(), id)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}

	// created_at只保留日期，时分秒归零
	got := record.CreatedAt
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("created_at带了时间部分: %v", got)
	}
	now := time.Now().UTC()
	want := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("created_at = %v, want %v", got, want)
	}
}

func TestStoreCaseAnalysisDistinctIDs(t *testing.T) {
	repo := newTestRepository(t)

	first, err := repo.StoreCaseAnalysis(context.Background(), "Case A", []string{"https://cdn.test/a.jpg"}, testAnalysis())
	if err != nil {
		t.Fatalf("第一条入库失败: %v", err)
	}
	second, err := repo.StoreCaseAnalysis(context.Background(), "Case B", []string{"https://cdn.test/b.jpg"}, testAnalysis())
	if err != nil {
		t.Fatalf("第二条入库失败: %v", err)
	}
	if first == second {
		t.Errorf("两条记录ID相同: %d", first)
	}
}

func TestGetCaseNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetCase(context.Background(), 9999)
	if err == nil {
		t.Fatal("查不存在的ID应返回错误")
	}
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("错误应归入ErrPersistence: %v", err)
	}
}
