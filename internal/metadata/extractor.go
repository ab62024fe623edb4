// Package metadata извлекает сведения о записях медитаций: теги, длительность, размер
package metadata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
)

// NarrationMetadata сведения о записи из тегов или имени файла
type NarrationMetadata struct {
	Narrator string
	Title    string
	Genre    string // Жанр ID3 используется как намерение медитации
}

// FileInfo содержит информацию о файле
type FileInfo struct {
	Size        int64
	Duration    time.Duration
	ContentType string
}

// Extractor извлекает метаданные из аудио файлов
type Extractor struct{}

// NewExtractor создает новый экстрактор метаданных
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFromReader читает теги. Если тегов нет, сведения берутся из имени source.
func (e *Extractor) ExtractFromReader(reader io.ReadSeeker, source string) NarrationMetadata {
	fallback := metadataFromName(source)
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return fallback
	}

	m, err := tag.ReadFrom(reader)
	if err != nil {
		return fallback
	}

	result := NarrationMetadata{
		Narrator: m.Artist(),
		Title:    m.Title(),
		Genre:    m.Genre(),
	}
	if result.Title == "" {
		result.Title = fallback.Title
	}
	if result.Narrator == "" {
		result.Narrator = fallback.Narrator
	}
	return result
}

// ExtractFromFile извлекает метаданные из файла
func (e *Extractor) ExtractFromFile(filePath string) NarrationMetadata {
	file, err := os.Open(filePath)
	if err != nil {
		return metadataFromName(filePath)
	}
	defer file.Close()

	return e.ExtractFromReader(file, filePath)
}

// GetDuration декодирует MP3 или WAV и возвращает длительность
func (e *Extractor) GetDuration(filePath string) (time.Duration, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(file)
	case ".wav":
		streamer, format, err = wav.Decode(file)
	default:
		return 0, fmt.Errorf("неподдерживаемый формат: %s", ext)
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка декодирования: %w", err)
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// GetFileInfo получает информацию о файле (размер, длительность, MIME тип)
func (e *Extractor) GetFileInfo(filePath string) (*FileInfo, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о файле: %w", err)
	}

	duration, err := e.GetDuration(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения длительности: %w", err)
	}

	return &FileInfo{
		Size:        fileInfo.Size(),
		Duration:    duration,
		ContentType: ContentType(filePath),
	}, nil
}

// ContentType возвращает MIME тип записи по расширению
func ContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// metadataFromName разбирает имя файла вида "Ведущий - Название"
func metadataFromName(source string) NarrationMetadata {
	fileName := filepath.Base(source)
	nameWithoutExt := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	parts := strings.Split(nameWithoutExt, " - ")
	if len(parts) >= 2 {
		return NarrationMetadata{
			Narrator: strings.TrimSpace(parts[0]),
			Title:    strings.TrimSpace(strings.Join(parts[1:], " - ")),
		}
	}

	return NarrationMetadata{Title: nameWithoutExt}
}
