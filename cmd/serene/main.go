package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ssbullock/serene/internal/config"
	"github.com/ssbullock/serene/internal/data"
	"github.com/ssbullock/serene/internal/library"
	"github.com/ssbullock/serene/internal/logging"
	"github.com/ssbullock/serene/internal/s3"
	"github.com/ssbullock/serene/internal/soundscape"
	"github.com/ssbullock/serene/internal/uploader"
)

// errNoStorage хранилище не настроено в конфигурации
var errNoStorage = errors.New("хранилище S3 не настроено: укажите aws_bucket_name и aws_region в " + config.DefaultPath)

// Storage хранилище записей: загрузка, удаление и временные ссылки
type Storage interface {
	uploader.Storage
	PresignGet(key string, ttl time.Duration) (string, error)
	Bucket() string
}

// Application объединяет конфигурацию, данные и сервисы приложения
type Application struct {
	Config  *config.Config
	Data    *data.AppData
	Library *library.Manager
	Catalog *soundscape.Catalog
	Logger  *log.Logger
	Storage Storage // nil, если хранилище не настроено
}

// NewApplication загружает данные и собирает сервисы по конфигурации.
// Без логгера сообщения отбрасываются.
func NewApplication(cfg *config.Config, logger *log.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	appData := data.NewAppData()
	if err := appData.LoadData(cfg.DataFile); err != nil {
		return nil, fmt.Errorf("ошибка загрузки библиотеки: %w", err)
	}

	app := &Application{
		Config:  cfg,
		Data:    appData,
		Library: library.NewManager(appData, cfg.DataFile),
		Logger:  logger,
	}

	if cfg.HasStorage() {
		storage, err := s3.NewStorage(&s3.Config{
			Region:     cfg.AwsRegion,
			AccessKey:  cfg.AwsAccessKey,
			SecretKey:  cfg.AwsSecretKey,
			Endpoint:   cfg.AwsEndpoint,
			BucketName: cfg.AwsBucketName,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка создания S3 клиента: %w", err)
		}
		app.Storage = storage
	}

	app.Catalog = app.newCatalog()
	return app, nil
}

// newCatalog собирает каталог фоновых дорожек
func (app *Application) newCatalog() *soundscape.Catalog {
	var opts []soundscape.Option
	if app.Storage != nil {
		opts = append(opts, soundscape.WithPresigner(app.Storage, app.Config.PresignTTL))
	}
	if app.Config.SoundscapeBaseURL != "" {
		opts = append(opts, soundscape.WithBaseURL(app.Config.SoundscapeBaseURL))
	}
	return soundscape.New(app.Config.SoundscapeEntries(), opts...)
}

// requireStorage возвращает хранилище или ошибку, если оно не настроено
func (app *Application) requireStorage() (Storage, error) {
	if app.Storage == nil {
		return nil, errNoStorage
	}
	return app.Storage, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(config.DefaultPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка настройки логгера: %v\n", err)
		os.Exit(1)
	}

	app, err := NewApplication(cfg, logger)
	if err != nil {
		logger.Fatal("ошибка инициализации", "err", err)
	}

	if err := app.createRootCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
