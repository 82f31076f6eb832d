package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"learnhub/internal/config"
	"learnhub/pkg/logger"
	"os"
	"path"
	"path/filepath"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const (
	TypeLocal = "local"
	TypeMinio = "minio"
	TypeOSS   = "oss"
)

var ErrNotFound = errors.New("storage: object not found")

// Provider 定义通用存储接口
type Provider interface {
	Put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// LocalProvider 本地目录存储实现
type LocalProvider struct {
	Root string
}

func NewLocalProvider(root string) *LocalProvider {
	return &LocalProvider{Root: root}
}

func (p *LocalProvider) Put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error {
	dst := filepath.Join(p.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return err
	}
	return out.Sync()
}

func (p *LocalProvider) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(p.Root, filepath.FromSlash(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

func (p *LocalProvider) Delete(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(p.Root, filepath.FromSlash(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (p *LocalProvider) URL(name string) string {
	return filepath.Join(p.Root, filepath.FromSlash(name))
}

// MinioProvider MinIO存储实现
type MinioProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioProvider(cfg *config.StorageConfig) (*MinioProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioProvider{Config: cfg, Client: client}, nil
}

func (p *MinioProvider) Put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, name, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioProvider) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := p.Client.GetObject(ctx, p.Config.MinioBucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject 是惰性的，需要 Stat 才能发现对象不存在
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return obj, nil
}

func (p *MinioProvider) Delete(ctx context.Context, name string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, name, minio.RemoveObjectOptions{})
}

func (p *MinioProvider) URL(name string) string {
	return "/" + p.Config.MinioBucket + "/" + name
}

// OSSProvider 阿里云OSS存储实现
type OSSProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSProvider(cfg *config.StorageConfig) (*OSSProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSProvider{Config: cfg, Client: client}, nil
}

func (p *OSSProvider) Put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return err
	}
	return bucket.PutObject(name, reader, oss.ContentType(contentType), oss.WithContext(ctx))
}

func (p *OSSProvider) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return nil, err
	}
	body, err := bucket.GetObject(name, oss.WithContext(ctx))
	if err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && svcErr.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return body, nil
}

func (p *OSSProvider) Delete(ctx context.Context, name string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(name, oss.WithContext(ctx))
}

func (p *OSSProvider) URL(name string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Config.OSSBucket, p.Config.OSSEndpoint, name)
}

// New 按配置创建存储实现，远端存储初始化失败时回退到本地目录
func New(cfg *config.StorageConfig) Provider {
	var provider Provider
	switch cfg.Type {
	case TypeMinio:
		p, err := NewMinioProvider(cfg)
		if err != nil {
			logger.Log.Warn("minio storage unavailable, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	case TypeOSS:
		p, err := NewOSSProvider(cfg)
		if err != nil {
			logger.Log.Warn("oss storage unavailable, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = NewLocalProvider(cfg.LocalPath)
	}
	return provider
}

// PutBytes 上传一段内存数据
func PutBytes(ctx context.Context, p Provider, name string, data []byte, contentType string) error {
	return p.Put(ctx, name, bytes.NewReader(data), int64(len(data)), contentType)
}

// GetBytes 读取完整对象
func GetBytes(ctx context.Context, p Provider, name string) ([]byte, error) {
	rc, err := p.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Join 拼接对象名，前缀为空时原样返回
func Join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
