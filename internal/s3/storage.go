// Package s3 предоставляет хранилище записей медитаций в Amazon S3
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// ErrForeignURL URL не относится к бакету хранилища
var ErrForeignURL = errors.New("URL не относится к хранилищу")

// Config содержит настройки для S3
type Config struct {
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	BucketName string
}

// Uploader загрузка объектов, реализуется s3manager.Uploader
type Uploader interface {
	UploadWithContext(ctx context.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Client операции с объектами, реализуется *s3.S3
type Client interface {
	DeleteObjectWithContext(ctx context.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	GetObjectRequest(input *s3.GetObjectInput) (*request.Request, *s3.GetObjectOutput)
}

// Storage хранилище аудиофайлов
type Storage struct {
	uploader Uploader
	client   Client
	config   *Config
}

// NewStorage создает хранилище с AWS сессией
func NewStorage(config *Config) (*Storage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
	}

	// Совместимые хранилища работают с адресацией через путь
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AWS сессии: %w", err)
	}

	return NewStorageWithClients(config, s3manager.NewUploader(sess), s3.New(sess)), nil
}

// NewStorageWithClients создает хранилище с готовыми клиентами
func NewStorageWithClients(config *Config, uploader Uploader, client Client) *Storage {
	return &Storage{
		uploader: uploader,
		client:   client,
		config:   config,
	}
}

// Bucket возвращает имя бакета
func (s *Storage) Bucket() string {
	return s.config.BucketName
}

// UploadFile загружает файл и возвращает его URL
func (s *Storage) UploadFile(ctx context.Context, reader io.Reader, key, contentType string) (string, error) {
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := s.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки: %w", err)
	}

	if s.config.Endpoint == "" && out != nil && out.Location != "" {
		return out.Location, nil
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.config.Endpoint, "/"), s.config.BucketName, key), nil
}

// DeleteFile удаляет файл из S3
func (s *Storage) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления файла из S3: %w", err)
	}
	return nil
}

// PresignGet возвращает подписанную ссылку на чтение объекта.
// Подпись вычисляется локально, запросов к S3 не выполняется.
func (s *Storage) PresignGet(key string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	})

	link, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи ссылки: %w", err)
	}
	return link, nil
}

// KeyFromURL извлекает ключ объекта из URL, выданного UploadFile.
// Поддерживаются адресация через путь (endpoint/bucket/key)
// и виртуальные хосты (bucket.s3.region.amazonaws.com/key).
func (s *Storage) KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("неверный URL: %w", err)
	}

	p := strings.TrimPrefix(u.Path, "/")
	bucket := s.config.BucketName

	switch {
	case strings.HasPrefix(u.Host, bucket+"."):
		if p == "" {
			return "", ErrForeignURL
		}
		return p, nil
	case strings.HasPrefix(p, bucket+"/"):
		key := strings.TrimPrefix(p, bucket+"/")
		if key == "" {
			return "", ErrForeignURL
		}
		return key, nil
	default:
		return "", ErrForeignURL
	}
}
