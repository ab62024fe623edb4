// Package uploader загружает записи медитаций в хранилище и добавляет их в библиотеку
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ssbullock/serene/internal/data"
	"github.com/ssbullock/serene/internal/library"
	"github.com/ssbullock/serene/internal/metadata"
)

// KeyPrefix префикс ключей записей в бакете
const KeyPrefix = "meditations/"

// Storage хранилище файлов, реализуется s3.Storage
type Storage interface {
	UploadFile(ctx context.Context, reader io.Reader, key, contentType string) (string, error)
	DeleteFile(ctx context.Context, key string) error
	KeyFromURL(raw string) (string, error)
}

// Extractor источник сведений о записи, реализуется metadata.Extractor
type Extractor interface {
	ExtractFromFile(filePath string) metadata.NarrationMetadata
	GetFileInfo(filePath string) (*metadata.FileInfo, error)
}

// Options поля медитации, заданные пользователем. Пустые значения берутся из тегов.
type Options struct {
	Title      string
	Narrator   string
	Intention  string
	Background string
}

// Service управляет процессом загрузки файлов
type Service struct {
	storage   Storage
	extractor Extractor
	library   *library.Manager
	logger    *log.Logger
	newKey    func(ext string) string
}

// NewService создает новый сервис загрузки
func NewService(storage Storage, extractor Extractor, lib *library.Manager, logger *log.Logger) *Service {
	if extractor == nil {
		extractor = metadata.NewExtractor()
	}
	return &Service{
		storage:   storage,
		extractor: extractor,
		library:   lib,
		logger:    logger,
		newKey:    ObjectKey,
	}
}

// ObjectKey формирует уникальный ключ объекта для записи
func ObjectKey(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return KeyPrefix + uuid.NewString() + ext
}

// UploadFile загружает запись и добавляет ее в библиотеку
func (s *Service) UploadFile(ctx context.Context, filePath string, opts Options, progressCallback func(int64)) (data.Meditation, error) {
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		return data.Meditation{}, fmt.Errorf("файл не найден: %s", filePath)
	}

	fileInfo, err := s.extractor.GetFileInfo(filePath)
	if err != nil {
		return data.Meditation{}, fmt.Errorf("ошибка получения информации о файле: %w", err)
	}
	tags := s.extractor.ExtractFromFile(filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return data.Meditation{}, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if progressCallback != nil {
		reader = &ProgressReader{
			Reader:     file,
			Size:       fileInfo.Size,
			OnProgress: progressCallback,
		}
	}

	key := s.newKey(filepath.Ext(filePath))
	s.logger.Debug("загрузка записи", "file", filePath, "key", key)

	url, err := s.storage.UploadFile(ctx, reader, key, fileInfo.ContentType)
	if err != nil {
		return data.Meditation{}, fmt.Errorf("ошибка загрузки в S3: %w", err)
	}

	med := data.Meditation{
		Title:      firstNonEmpty(opts.Title, tags.Title),
		Narrator:   firstNonEmpty(opts.Narrator, tags.Narrator),
		Intention:  firstNonEmpty(opts.Intention, tags.Genre),
		Background: opts.Background,
		Length:     int(fileInfo.Duration.Seconds()),
		FileSize:   fileInfo.Size,
		URL:        url,
	}

	added, err := s.library.Add(med)
	if err != nil {
		// Запись в библиотеке не сохранена, убираем объект из хранилища
		if delErr := s.storage.DeleteFile(ctx, key); delErr != nil {
			s.logger.Warn("не удалось удалить загруженный файл", "key", key, "err", delErr)
		}
		return data.Meditation{}, err
	}
	return added, nil
}

// Remove удаляет медитацию из хранилища и библиотеки. Записи с URL вне
// хранилища удаляются только из библиотеки.
func (s *Service) Remove(ctx context.Context, id int) error {
	med, err := s.library.Get(id)
	if err != nil {
		return err
	}

	key, err := s.storage.KeyFromURL(med.URL)
	if err != nil {
		s.logger.Warn("запись вне хранилища, удаляется только из библиотеки", "id", id, "url", med.URL)
	} else if err := s.storage.DeleteFile(ctx, key); err != nil {
		return err
	}

	return s.library.Delete(id)
}

// ProgressReader структура для отслеживания прогресса чтения
type ProgressReader struct {
	io.Reader
	Size       int64
	OnProgress func(int64)
	bytesRead  int64
}

func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.Reader.Read(p)
	pr.bytesRead += int64(n)
	if pr.OnProgress != nil {
		pr.OnProgress(pr.bytesRead)
	}
	return n, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
