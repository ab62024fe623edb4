// Package data содержит библиотеку медитаций и ее хранение в YAML
package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound медитация не найдена
var ErrNotFound = errors.New("медитация не найдена")

// Meditation запись библиотеки
type Meditation struct {
	ID         int       `yaml:"id"`
	Title      string    `yaml:"title"`
	Narrator   string    `yaml:"narrator,omitempty"`
	Intention  string    `yaml:"intention,omitempty"`  // Намерение: сон, фокус, спокойствие...
	Background string    `yaml:"background,omitempty"` // Идентификатор звукового ландшафта
	Length     int       `yaml:"length"`               // Длительность в секундах
	FileSize   int64     `yaml:"file_size"`            // Размер файла в байтах
	URL        string    `yaml:"url"`                  // URL записи в хранилище S3
	CreatedAt  time.Time `yaml:"created_at"`
}

// Duration возвращает длительность записи
func (m Meditation) Duration() time.Duration {
	return time.Duration(m.Length) * time.Second
}

// AppData содержимое файла библиотеки
type AppData struct {
	Meditations []Meditation `yaml:"meditations"`
}

// NewAppData создает пустую библиотеку
func NewAppData() *AppData {
	return &AppData{
		Meditations: make([]Meditation, 0),
	}
}

func expandPath(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~") {
		return filePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return strings.Replace(filePath, "~", home, 1), nil
}

// LoadData загружает данные из файла
func (d *AppData) LoadData(filePath string) error {
	path, err := expandPath(filePath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Если файл не найден, инициализируем пустыми данными
		if os.IsNotExist(err) {
			*d = *NewAppData()
			return nil
		}
		return fmt.Errorf("ошибка чтения файла данных: %w", err)
	}
	if len(data) == 0 {
		*d = *NewAppData()
		return nil
	}

	loaded := NewAppData()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("ошибка разбора данных: %w", err)
	}
	*d = *loaded
	return nil
}

// SaveData сохраняет данные в файл
func (d *AppData) SaveData(filePath string) error {
	path, err := expandPath(filePath)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("ошибка создания каталога данных: %w", err)
		}
	}

	// Пишем во временный файл, чтобы не потерять библиотеку при сбое
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла данных: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ошибка записи файла данных: %w", err)
	}
	return nil
}

// AddMeditation добавляет запись и возвращает присвоенный ID
func (d *AppData) AddMeditation(m Meditation) int {
	maxID := 0
	for _, existing := range d.Meditations {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	m.ID = maxID + 1
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	d.Meditations = append(d.Meditations, m)
	return m.ID
}

// MeditationByID возвращает запись по ID
func (d *AppData) MeditationByID(id int) (*Meditation, error) {
	for i := range d.Meditations {
		if d.Meditations[i].ID == id {
			return &d.Meditations[i], nil
		}
	}
	return nil, fmt.Errorf("%w: ID %d", ErrNotFound, id)
}

// UpdateMeditation заменяет запись с тем же ID
func (d *AppData) UpdateMeditation(m Meditation) error {
	existing, err := d.MeditationByID(m.ID)
	if err != nil {
		return err
	}
	*existing = m
	return nil
}

// DeleteMeditationByID удаляет запись
func (d *AppData) DeleteMeditationByID(id int) error {
	for i := range d.Meditations {
		if d.Meditations[i].ID == id {
			d.Meditations = append(d.Meditations[:i], d.Meditations[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: ID %d", ErrNotFound, id)
}
