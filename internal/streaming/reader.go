// Package streaming содержит компоненты для загрузки аудиоресурсов по локатору
package streaming

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultBufferSize размер буфера потокового чтения
const DefaultBufferSize = 256 * 1024

// MaxResourceSize ограничение на размер ресурса, загружаемого в память
const MaxResourceSize = 512 * 1024 * 1024

// ErrTooLarge возвращается, если ресурс превышает MaxResourceSize
var ErrTooLarge = errors.New("ресурс слишком большой")

// client HTTP клиент без общего таймаута для длительного потокового чтения
var client = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       300 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

// Reader представляет буферизованный HTTP поток для чтения данных порциями
type Reader struct {
	reader *bufio.Reader
	resp   *http.Response
}

// NewReader создает новый потоковый ридер
func NewReader(ctx context.Context, url string, bufferSize int) (*Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Accept-Encoding", "identity") // Отключаем сжатие для аудио
	req.Header.Set("Range", "bytes=0-")
	req.Header.Set("User-Agent", "serene/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("ошибка HTTP: %s", resp.Status)
	}

	return &Reader{
		reader: bufio.NewReaderSize(resp.Body, bufferSize),
		resp:   resp,
	}, nil
}

// Read реализует интерфейс io.Reader для потокового чтения
func (sr *Reader) Read(p []byte) (n int, err error) {
	return sr.reader.Read(p)
}

// Close закрывает соединение
func (sr *Reader) Close() error {
	return sr.resp.Body.Close()
}

// ContentLength возвращает размер ответа или -1, если он неизвестен
func (sr *Reader) ContentLength() int64 {
	return sr.resp.ContentLength
}

// memoryResource ресурс, полностью загруженный в память
type memoryResource struct {
	*bytes.Reader
}

func (memoryResource) Close() error { return nil }

// IsRemote сообщает, указывает ли локатор на HTTP ресурс
func IsRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// Open открывает ресурс по локатору. Локальные файлы (путь или file://)
// открываются напрямую, HTTP ресурсы загружаются в память целиком,
// чтобы декодер мог выполнять перемотку.
func Open(ctx context.Context, locator string) (io.ReadSeekCloser, error) {
	if IsRemote(locator) {
		return fetch(ctx, locator)
	}

	path := locator
	if strings.HasPrefix(locator, "file://") {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, fmt.Errorf("неверный локатор: %w", err)
		}
		path = u.Path
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	return file, nil
}

func fetch(ctx context.Context, locator string) (io.ReadSeekCloser, error) {
	sr, err := NewReader(ctx, locator, DefaultBufferSize)
	if err != nil {
		return nil, err
	}
	defer sr.Close()

	if sr.ContentLength() > MaxResourceSize {
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(sr, MaxResourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения потока: %w", err)
	}
	if len(data) > MaxResourceSize {
		return nil, ErrTooLarge
	}

	return memoryResource{bytes.NewReader(data)}, nil
}

// GetStreamStatus возвращает текстовое описание состояния загрузки
func GetStreamStatus(isLoading bool, duration time.Duration) string {
	switch {
	case isLoading:
		return "Загрузка..."
	case duration == 0:
		return "Длительность неизвестна"
	default:
		return "Готово к воспроизведению"
	}
}
