package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tinhk-server-go/src/configs"
	"tinhk-server-go/src/core/utils"
)

// 模拟浏览器的请求头，部分图床会拒绝裸请求
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Normalizer 图片归一化器：把客户端提交的各种形式统一成二进制+内容类型
type Normalizer struct {
	config     *configs.ImageConfig
	logger     *utils.Logger
	httpClient *http.Client
}

// NewNormalizer 创建新的图片归一化器
func NewNormalizer(config *configs.ImageConfig, logger *utils.Logger) *Normalizer {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("停止重定向：超过最大重定向次数")
			}
			return nil
		},
	}

	return &Normalizer{
		config:     config,
		logger:     logger,
		httpClient: httpClient,
	}
}

// Normalize 处理一张图片，支持三种输入形式：
//   - data URI（data:<mime>;base64,<data>）
//   - 无前缀的裸base64（通过JPEG/PNG的base64前缀识别）
//   - 远程URL（blob:前缀会被剥掉后按URL处理）
func (n *Normalizer) Normalize(ctx context.Context, payload string) (*NormalizedImage, error) {
	payload = strings.TrimSpace(payload)

	var data []byte
	var declaredType string
	var err error

	switch {
	case strings.HasPrefix(payload, "data:"):
		data, declaredType, err = n.decodeDataURI(payload)
	case looksLikeRawBase64(payload):
		// 无声明类型时按线上版本的习惯默认JPEG
		declaredType = "image/jpeg"
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			err = fmt.Errorf("%w: base64解码失败: %v", ErrUnsupportedFormat, err)
		}
	case strings.HasPrefix(payload, "blob:"):
		data, declaredType, err = n.fetchRemote(ctx, strings.TrimPrefix(payload, "blob:"))
	case strings.HasPrefix(payload, "http://"), strings.HasPrefix(payload, "https://"):
		data, declaredType, err = n.fetchRemote(ctx, payload)
	default:
		return nil, fmt.Errorf("%w: 无法识别的图片数据", ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > n.config.MaxFileSize {
		return nil, fmt.Errorf("%w: 文件大小超限: %d bytes，最大允许: %d bytes",
			ErrUnsupportedFormat, len(data), n.config.MaxFileSize)
	}

	contentType := n.resolveContentType(data, declaredType)
	if !n.isFormatAllowed(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}

	if n.config.EnableDeepScan {
		if err := ValidateDecode(data); err != nil {
			return nil, err
		}
	}

	n.logger.Debug("图片归一化完成", map[string]interface{}{
		"content_type": contentType,
		"size":         len(data),
	})

	return &NormalizedImage{Data: data, ContentType: contentType}, nil
}

// decodeDataURI 拆分data URI头部声明的类型并解码base64部分
func (n *Normalizer) decodeDataURI(payload string) ([]byte, string, error) {
	header, encoded, found := strings.Cut(payload, ",")
	if !found {
		return nil, "", fmt.Errorf("%w: data URI缺少数据部分", ErrUnsupportedFormat)
	}

	declaredType := strings.TrimPrefix(header, "data:")
	declaredType = strings.TrimSuffix(declaredType, ";base64")

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("%w: base64解码失败: %v", ErrUnsupportedFormat, err)
	}
	return data, declaredType, nil
}

// fetchRemote 下载远程图片
func (n *Normalizer) fetchRemote(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: 创建请求失败: %v", ErrFetchFailed, err)
	}

	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: HTTP响应错误: %d %s", ErrFetchFailed, resp.StatusCode, resp.Status)
	}

	contentType := NormalizeContentType(resp.Header.Get("Content-Type"))
	if contentType == "text/html" {
		// blob目标不可直接抓取时通常会返回一个页面而不是图片
		return nil, "", fmt.Errorf("%w: 目标返回HTML页面而非图片", ErrUnsupportedFormat)
	}

	// 多读一个字节以便识别超限
	data, err := io.ReadAll(io.LimitReader(resp.Body, n.config.MaxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: 读取响应失败: %v", ErrFetchFailed, err)
	}

	n.logger.Debug("远程图片下载完成", map[string]interface{}{
		"url":          url,
		"content_type": contentType,
		"size":         len(data),
	})

	return data, contentType, nil
}

// resolveContentType 声明类型不可靠时改用文件头推断
func (n *Normalizer) resolveContentType(data []byte, declaredType string) string {
	declaredType = NormalizeContentType(declaredType)
	if detected := DetectContentType(data); detected != "" {
		return detected
	}
	return declaredType
}

// isFormatAllowed 检查内容类型是否在允许列表内
func (n *Normalizer) isFormatAllowed(contentType string) bool {
	subtype := strings.TrimPrefix(contentType, "image/")
	if subtype == contentType {
		return false
	}
	for _, allowed := range n.config.AllowedFormats {
		if strings.EqualFold(allowed, subtype) {
			return true
		}
	}
	return false
}

// looksLikeRawBase64 识别无data URI前缀的裸base64图片，
// JPEG的base64以"/9j/"开头，PNG以"iVBOR"开头
func looksLikeRawBase64(payload string) bool {
	return strings.HasPrefix(payload, "/9j/") || strings.HasPrefix(payload, "iVBOR")
}
