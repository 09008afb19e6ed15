package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"  // 注册GIF解码器
	_ "image/jpeg" // 注册JPEG解码器
	_ "image/png"  // 注册PNG解码器

	_ "golang.org/x/image/webp" // 注册WEBP解码器
)

// 图片格式魔数签名，JPEG只需要前两个字节
var imageSignatures = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8},
	"image/png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"image/gif":  {0x47, 0x49, 0x46, 0x38},
	"image/webp": {0x52, 0x49, 0x46, 0x46}, // RIFF，还需检查WEBP标识
}

// DetectContentType 根据文件头推断图片内容类型，识别不出返回空串
func DetectContentType(data []byte) string {
	for contentType, signature := range imageSignatures {
		if !bytes.HasPrefix(data, signature) {
			continue
		}
		// RIFF容器还可能是WAV/AVI，需要确认WEBP标识
		if contentType == "image/webp" {
			if len(data) < 12 || !bytes.Equal(data[8:12], []byte("WEBP")) {
				continue
			}
		}
		return contentType
	}
	return ""
}

// ValidateDecode 解码级深度校验，无法解码的数据视为损坏
func ValidateDecode(data []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: 图片解码失败: %v", ErrUnsupportedFormat, err)
	}
	return nil
}

// NormalizeContentType 整理内容类型：去掉参数部分并统一别名
func NormalizeContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}
	return contentType
}
