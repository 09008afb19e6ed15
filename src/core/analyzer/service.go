package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"tinhk-server-go/src/core/image"
	"tinhk-server-go/src/core/prompt"
	"tinhk-server-go/src/core/storage"
	"tinhk-server-go/src/core/types"
	"tinhk-server-go/src/core/utils"
)

// 单个请求内图片并发上传的上限
const maxConcurrentUploads = 4

// ImageNormalizer 图片归一化能力
type ImageNormalizer interface {
	Normalize(ctx context.Context, payload string) (*image.NormalizedImage, error)
}

// ImageUploader 对象存储上传能力
type ImageUploader interface {
	Upload(ctx context.Context, img *image.NormalizedImage) (*storage.UploadedImage, error)
}

// CaseAnalyzer 结构化分析能力
type CaseAnalyzer interface {
	AnalyzeCase(ctx context.Context, messages []openai.ChatCompletionMessage) (*types.CaseAnalysis, error)
}

// CaseStore 案例持久化能力
type CaseStore interface {
	StoreCaseAnalysis(ctx context.Context, title string, imageURLs []string, analysis *types.CaseAnalysis) (uint, error)
}

// Service 案例分析服务：校验请求、编排图片处理/模型调用/入库
type Service struct {
	logger     *utils.Logger
	normalizer ImageNormalizer
	uploader   ImageUploader
	analyzer   CaseAnalyzer
	store      CaseStore
}

// NewService 构造函数，依赖在进程启动时注入一次
func NewService(logger *utils.Logger, normalizer ImageNormalizer, uploader ImageUploader, analyzer CaseAnalyzer, store CaseStore) *Service {
	return &Service{
		logger:     logger,
		normalizer: normalizer,
		uploader:   uploader,
		analyzer:   analyzer,
		store:      store,
	}
}

// Start 注册案例分析相关路由
func (s *Service) Start(ctx context.Context, engine *gin.Engine) error {
	engine.GET("/analyze_case", s.handleGet)
	engine.POST("/analyze_case", s.handlePost)
	engine.OPTIONS("/analyze_case", s.handleOptions)

	s.logger.Info("案例分析HTTP服务路由注册完成")
	return nil
}

// handleOptions 处理OPTIONS请求（CORS预检）
func (s *Service) handleOptions(c *gin.Context) {
	s.addCORSHeaders(c)
	c.Status(http.StatusOK)
}

// handleGet 处理GET请求（状态检查）
func (s *Service) handleGet(c *gin.Context) {
	s.addCORSHeaders(c)
	c.String(http.StatusOK, "案例分析接口运行正常")
}

// handlePost 处理POST请求，状态机：
// 校验 -> 归一化/上传 -> 提示词 -> 模型分析 -> 入库 -> 完成
func (s *Service) handlePost(c *gin.Context) {
	s.addCORSHeaders(c)

	req := &AnalyzeRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		s.respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	// 线上旧版客户端把标题和上下文放在query string里，只有截图列表和
	// 配置走body，这里两种形态都接受，query优先
	if title := c.Query("case_title"); title != "" {
		req.CaseTitle = title
	}
	if extra := c.Query("additional_context"); extra != "" {
		req.AdditionalContext = extra
	}

	// 阶段一：请求校验
	if detail, ok := validateRequest(req); !ok {
		s.respondError(c, http.StatusBadRequest, detail)
		return
	}

	// 阶段二：图片归一化与并发上传
	uploaded, err := s.processImages(c.Request.Context(), req.ScreenshotURLs)
	if err != nil {
		if isClientImageError(err) {
			s.respondError(c, http.StatusBadRequest, "Failed to process screenshot images")
		} else {
			s.respondError(c, http.StatusInternalServerError, "An internal error occurred while processing images")
		}
		s.logger.Warn(fmt.Sprintf("图片处理阶段失败: %v", err))
		return
	}

	imageURLs := make([]string, len(uploaded))
	for i, img := range uploaded {
		imageURLs[i] = img.URL
	}

	// 阶段三：组装提示词（纯函数，无失败路径）
	messages := prompt.BuildMessages(
		prompt.SystemPrompt(req.Config),
		prompt.UserPrompt(req.CaseTitle, req.AdditionalContext),
		imageURLs,
	)

	// 阶段四：模型结构化分析
	analysis, err := s.analyzer.AnalyzeCase(c.Request.Context(), messages)
	if err != nil {
		s.logger.Error(fmt.Sprintf("案例分析失败: %v", err))
		s.respondError(c, http.StatusInternalServerError, "An error occurred while analyzing the case")
		return
	}

	// 阶段五：入库。失败不影响响应——分析结果已经付费生成，必须返回给客户端
	var caseID *uint
	if id, err := s.store.StoreCaseAnalysis(c.Request.Context(), req.CaseTitle, imageURLs, analysis); err != nil {
		s.logger.Error(fmt.Sprintf("案例入库失败，降级返回: %v", err))
	} else {
		caseID = &id
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		CaseID:   caseID,
		Title:    req.CaseTitle,
		Analysis: analysis,
	})
}

// validateRequest 校验请求，返回的detail沿用线上版本的文案
func validateRequest(req *AnalyzeRequest) (string, bool) {
	if strings.TrimSpace(req.CaseTitle) == "" {
		return "Case title is required", false
	}
	if len(req.ScreenshotURLs) == 0 {
		return "At least one screenshot URL is required", false
	}
	for _, url := range req.ScreenshotURLs {
		if strings.TrimSpace(url) == "" {
			return "Invalid screenshot URL provided", false
		}
	}
	return "", true
}

// processImages 并发归一化并上传所有图片。
// 单张失败只丢弃该张并记日志；全部失败时整个请求失败。
// 返回结果严格保持输入顺序，与上传完成顺序无关。
func (s *Service) processImages(ctx context.Context, payloads []string) ([]*storage.UploadedImage, error) {
	results := make([]*storage.UploadedImage, len(payloads))
	failures := make([]error, len(payloads))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)

	for i, payload := range payloads {
		i, payload := i, payload
		g.Go(func() error {
			img, err := s.normalizer.Normalize(gctx, payload)
			if err != nil {
				s.logger.Warn(fmt.Sprintf("第%d张图片归一化失败，跳过: %v", i, err))
				mu.Lock()
				failures[i] = err
				mu.Unlock()
				return nil
			}

			up, err := s.uploader.Upload(gctx, img)
			if err != nil {
				s.logger.Warn(fmt.Sprintf("第%d张图片上传失败，跳过: %v", i, err))
				mu.Lock()
				failures[i] = err
				mu.Unlock()
				return nil
			}

			mu.Lock()
			results[i] = up
			mu.Unlock()
			return nil
		})
	}

	// 所有图片都是软失败，这里不会返回错误
	_ = g.Wait()

	uploaded := make([]*storage.UploadedImage, 0, len(results))
	for _, r := range results {
		if r != nil {
			uploaded = append(uploaded, r)
		}
	}

	if len(uploaded) == 0 {
		return nil, errors.Join(failures...)
	}
	return uploaded, nil
}

// isClientImageError 全部失败时判断该归为客户端错误还是内部错误：
// 只要所有失败都是格式或下载问题，就算客户端错误
func isClientImageError(err error) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return errors.Is(err, image.ErrUnsupportedFormat) || errors.Is(err, image.ErrFetchFailed)
	}
	for _, e := range joined.Unwrap() {
		if !errors.Is(e, image.ErrUnsupportedFormat) && !errors.Is(e, image.ErrFetchFailed) {
			return false
		}
	}
	return true
}

// addCORSHeaders 添加CORS头，与线上版本一样全放开
func (s *Service) addCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "*")
}

// respondError 返回错误响应
func (s *Service) respondError(c *gin.Context, statusCode int, detail string) {
	c.JSON(statusCode, ErrorResponse{Detail: detail})
}
