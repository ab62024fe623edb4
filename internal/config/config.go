// Package config содержит функции для загрузки конфигурации приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/ssbullock/serene/internal/soundscape"
)

// DefaultPath путь к файлу конфигурации по умолчанию
const DefaultPath = "~/.serene"

const (
	defaultDataFile   = "~/.serene-library.yaml"
	defaultLogLevel   = "info"
	defaultPresignTTL = time.Hour
)

// Config структура для хранения конфигурации приложения
type Config struct {
	AwsBucketName string `yaml:"aws_bucket_name"`
	AwsAccessKey  string `yaml:"aws_access_key"`
	AwsSecretKey  string `yaml:"aws_secret_key"`
	AwsRegion     string `yaml:"aws_region"`
	AwsEndpoint   string `yaml:"aws_endpoint"`

	DataFile   string        `yaml:"data_file"`
	Volume     *float64      `yaml:"volume"`
	LogLevel   string        `yaml:"log_level"`
	PresignTTL time.Duration `yaml:"presign_ttl"`

	SoundscapeBaseURL string             `yaml:"soundscape_base_url"`
	SoundscapePrefix  string             `yaml:"soundscape_prefix"`
	Soundscapes       []soundscape.Entry `yaml:"soundscapes"`
}

// LoadConfig загружает конфигурацию приложения из указанного файла.
// Если файла нет, возвращается конфигурация по умолчанию.
func LoadConfig(filePath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := strings.Replace(filePath, "~", home, 1)

	config := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
		}
	}

	// Устанавливаем значения по умолчанию, если они не заданы
	if config.DataFile == "" {
		config.DataFile = defaultDataFile
	}
	if config.Volume == nil {
		v := 1.0
		config.Volume = &v
	}
	if config.LogLevel == "" {
		config.LogLevel = defaultLogLevel
	}
	if config.PresignTTL == 0 {
		config.PresignTTL = defaultPresignTTL
	}
	if config.SoundscapePrefix == "" {
		config.SoundscapePrefix = soundscape.DefaultPrefix
	}

	config.DataFile = strings.Replace(config.DataFile, "~", home, 1)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	var errs []error
	if c.Volume != nil && (*c.Volume < 0 || *c.Volume > 1) {
		errs = append(errs, fmt.Errorf("volume должен быть в диапазоне [0, 1], получено: %v", *c.Volume))
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, fmt.Errorf("неверный log_level: %s", c.LogLevel))
		}
	}
	if c.PresignTTL < 0 {
		errs = append(errs, fmt.Errorf("presign_ttl не может быть отрицательным: %s", c.PresignTTL))
	}
	for i, s := range c.Soundscapes {
		if strings.TrimSpace(s.ID) == "" {
			errs = append(errs, fmt.Errorf("soundscapes[%d]: пустой id", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("неверная конфигурация: %w", errors.Join(errs...))
	}
	return nil
}

// HasStorage сообщает, настроено ли хранилище S3
func (c *Config) HasStorage() bool {
	return c.AwsBucketName != "" && c.AwsRegion != ""
}

// DefaultVolume возвращает громкость воспроизведения
func (c *Config) DefaultVolume() float64 {
	if c.Volume == nil {
		return 1
	}
	return *c.Volume
}

// SoundscapeEntries возвращает встроенный каталог, дополненный записями из файла
func (c *Config) SoundscapeEntries() []soundscape.Entry {
	return append(soundscape.Builtin(c.SoundscapePrefix), c.Soundscapes...)
}
