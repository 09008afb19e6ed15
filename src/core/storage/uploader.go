package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tinhk-server-go/src/configs"
	"tinhk-server-go/src/core/image"
	"tinhk-server-go/src/core/utils"
)

// ErrStorage 对象存储写入失败
var ErrStorage = errors.New("对象存储写入失败")

// UploadedImage 上传完成的图片：存储键及其公开访问URL
type UploadedImage struct {
	Key string // 对象存储键
	URL string // 公开访问URL
}

// Uploader 对象存储上传器，进程生命周期内复用一个客户端
type Uploader struct {
	client *minio.Client
	config *configs.StorageConfig
	logger *utils.Logger
}

// NewUploader 创建对象存储上传器
func NewUploader(config *configs.StorageConfig, logger *utils.Logger) (*Uploader, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("创建对象存储客户端失败: %w", err)
	}

	return &Uploader{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Upload 上传一张归一化图片，返回其公开URL
func (u *Uploader) Upload(ctx context.Context, img *image.NormalizedImage) (*UploadedImage, error) {
	key := ObjectKey(time.Now().UTC())

	opts := minio.PutObjectOptions{
		ContentType: img.ContentType,
		// inline让浏览器直接渲染而不是下载
		ContentDisposition: "inline",
		UserMetadata: map[string]string{
			"x-amz-acl": "public-read",
		},
	}

	_, err := u.client.PutObject(ctx, u.config.Bucket, key,
		bytes.NewReader(img.Data), int64(len(img.Data)), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	uploaded := &UploadedImage{
		Key: key,
		URL: u.PublicURL(key),
	}

	u.logger.Info("图片上传完成", map[string]interface{}{
		"key":          key,
		"content_type": img.ContentType,
		"size":         len(img.Data),
	})

	return uploaded, nil
}

// PublicURL 拼接对象的公开访问URL
func (u *Uploader) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", u.config.Bucket, u.config.Endpoint, key)
}

// ObjectKey 生成按UTC日期分层的存储键。
// 注意：历史原因后缀固定为.jpg，png/gif/webp也不例外，
// 实际类型由对象的Content-Type元数据表达，消费方依赖这个URL形态。
func ObjectKey(now time.Time) string {
	return fmt.Sprintf("cases/%04d/%02d/%02d/%s.jpg",
		now.Year(), int(now.Month()), now.Day(), uuid.NewString())
}
