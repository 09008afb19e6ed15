package image

import "errors"

var (
	// ErrUnsupportedFormat 图片格式不在允许列表内或数据无法识别
	ErrUnsupportedFormat = errors.New("不支持的图片格式")
	// ErrFetchFailed 远程图片下载失败（网络错误或非2xx响应）
	ErrFetchFailed = errors.New("图片下载失败")
)

// NormalizedImage 归一化后的图片数据
type NormalizedImage struct {
	Data        []byte // 二进制内容
	ContentType string // image/png、image/jpeg、image/gif、image/webp 之一
}
