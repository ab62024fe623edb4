// Package soundscape содержит каталог фоновых звуковых ландшафтов
package soundscape

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnknownSoundscape идентификатор отсутствует в каталоге
	ErrUnknownSoundscape = errors.New("неизвестный звуковой ландшафт")
	// ErrNoSource для записи не задан ни URL, ни способ получить ссылку по ключу
	ErrNoSource = errors.New("не задан источник звукового ландшафта")
)

// DefaultPrefix префикс ключей встроенных ландшафтов в бакете
const DefaultPrefix = "soundscapes/"

// Entry запись каталога
type Entry struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Key   string `yaml:"key,omitempty"` // Ключ объекта в хранилище
	URL   string `yaml:"url,omitempty"` // Прямая ссылка, имеет приоритет над ключом
}

// Presigner выдает временные ссылки на объекты хранилища
type Presigner interface {
	PresignGet(key string, ttl time.Duration) (string, error)
}

var builtin = []Entry{
	{ID: "rain", Title: "Дождь"},
	{ID: "ocean", Title: "Океан"},
	{ID: "forest", Title: "Лес"},
	{ID: "fire", Title: "Костер"},
	{ID: "birds", Title: "Птицы"},
	{ID: "white-noise", Title: "Белый шум"},
	{ID: "singing-bowls", Title: "Поющие чаши"},
}

// Builtin возвращает встроенные записи с ключами вида <prefix><id>.mp3
func Builtin(prefix string) []Entry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	entries := make([]Entry, len(builtin))
	for i, e := range builtin {
		e.Key = prefix + e.ID + ".mp3"
		entries[i] = e
	}
	return entries
}

// Catalog сопоставляет идентификаторы ландшафтов с локаторами
type Catalog struct {
	entries   []Entry
	byID      map[string]int
	presigner Presigner
	ttl       time.Duration
	baseURL   string
}

// Option настраивает каталог
type Option func(*Catalog)

// WithPresigner включает выдачу подписанных ссылок по ключу
func WithPresigner(p Presigner, ttl time.Duration) Option {
	return func(c *Catalog) {
		c.presigner = p
		c.ttl = ttl
	}
}

// WithBaseURL задает адрес, к которому добавляется ключ
func WithBaseURL(base string) Option {
	return func(c *Catalog) { c.baseURL = strings.TrimRight(base, "/") }
}

// New создает каталог. Записи с совпадающим ID заменяют более ранние.
func New(entries []Entry, opts ...Option) *Catalog {
	c := &Catalog{byID: make(map[string]int), ttl: time.Hour}
	for _, e := range entries {
		e.ID = strings.ToLower(strings.TrimSpace(e.ID))
		if e.ID == "" {
			continue
		}
		if i, ok := c.byID[e.ID]; ok {
			c.entries[i] = e
			continue
		}
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup возвращает запись по идентификатору
func (c *Catalog) Lookup(id string) (Entry, bool) {
	i, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Resolve возвращает локатор ресурса для идентификатора
func (c *Catalog) Resolve(id string) (string, error) {
	e, ok := c.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSoundscape, id)
	}

	switch {
	case e.URL != "":
		return e.URL, nil
	case e.Key != "" && c.presigner != nil:
		link, err := c.presigner.PresignGet(e.Key, c.ttl)
		if err != nil {
			return "", fmt.Errorf("ошибка получения ссылки на %s: %w", e.ID, err)
		}
		return link, nil
	case e.Key != "" && c.baseURL != "":
		return c.baseURL + "/" + escapeKey(e.Key), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNoSource, e.ID)
	}
}

// List возвращает записи в порядке добавления
func (c *Catalog) List() []Entry {
	return append([]Entry(nil), c.entries...)
}

// IDs возвращает идентификаторы в порядке добавления
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.ID
	}
	return ids
}

// Next возвращает идентификатор, следующий за current. После последнего
// идет пустая строка (без фона), после пустой строки первый.
func (c *Catalog) Next(current string) string {
	if len(c.entries) == 0 {
		return ""
	}
	i, ok := c.byID[strings.ToLower(strings.TrimSpace(current))]
	switch {
	case !ok:
		return c.entries[0].ID
	case i+1 < len(c.entries):
		return c.entries[i+1].ID
	default:
		return ""
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
