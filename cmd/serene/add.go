package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssbullock/serene/internal/metadata"
	"github.com/ssbullock/serene/internal/player"
	"github.com/ssbullock/serene/internal/uploader"
	"github.com/ssbullock/serene/internal/utils"
)

// createAddCommand создает команду add с привязкой к экземпляру приложения
func (app *Application) createAddCommand(ctx context.Context) *cobra.Command {
	var opts uploader.Options

	cmd := &cobra.Command{
		Use:   "add [file path]",
		Short: "Upload a narration to S3 storage",
		Long:  `Upload an mp3 or wav narration to S3 storage with progress tracking and add it to the library.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Создаем контекст с таймаутом для загрузки (10 минут)
			uploadCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()
			return app.uploadMeditation(uploadCtx, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Title, "title", "t", "", "meditation title (defaults to the file tags)")
	cmd.Flags().StringVarP(&opts.Narrator, "narrator", "n", "", "narrator name (defaults to the file tags)")
	cmd.Flags().StringVarP(&opts.Intention, "intention", "i", "", "intention, e.g. sleep or focus")
	cmd.Flags().StringVarP(&opts.Background, "background", "b", "", "default soundscape id")
	return cmd
}

// checkBackground проверяет, что фон есть в каталоге, и нормализует "none"
func (app *Application) checkBackground(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, player.NoBackground) {
		return "", nil
	}
	entry, ok := app.Catalog.Lookup(id)
	if !ok {
		return "", fmt.Errorf("неизвестный фон %q, доступны: %s", id, strings.Join(app.Catalog.IDs(), ", "))
	}
	return entry.ID, nil
}

// uploadMeditation загружает файл в S3 с отображением прогресса
func (app *Application) uploadMeditation(ctx context.Context, filePath string, opts uploader.Options) error {
	storage, err := app.requireStorage()
	if err != nil {
		return err
	}

	if opts.Background, err = app.checkBackground(opts.Background); err != nil {
		return err
	}

	extractor := metadata.NewExtractor()
	fileInfo, err := extractor.GetFileInfo(filePath)
	if err != nil {
		return fmt.Errorf("ошибка получения информации о файле: %w", err)
	}

	uploadService := uploader.NewService(storage, extractor, app.Library, app.Logger)

	// Отображаем информацию о загрузке
	fmt.Printf("📤 Загружаем медитацию в S3:\n")
	fmt.Printf("   Файл: %s\n", filePath)
	fmt.Printf("   Размер: %s\n", utils.FormatFileSize(fileInfo.Size))
	fmt.Printf("   Длительность: %s\n", utils.FormatDuration(fileInfo.Duration))
	fmt.Printf("   Бакет: %s\n", storage.Bucket())
	fmt.Println()

	// Создаем канал для отслеживания прогресса
	progressChan := make(chan int64)
	done := make(chan struct{})

	// Запускаем горутину для отображения прогресса
	go func() {
		defer close(done)
		startTime := time.Now()

		for progress := range progressChan {
			if progress <= 0 {
				continue
			}
			elapsed := time.Since(startTime)
			fmt.Printf("\r📊 %s", uploadProgress(progress, fileInfo.Size, elapsed))
		}
	}()

	// Выполняем загрузку с контекстом
	med, err := uploadService.UploadFile(ctx, filePath, opts, func(bytesRead int64) {
		progressChan <- bytesRead
	})

	// Закрываем канал прогресса и ждем последней строки
	close(progressChan)
	<-done

	if ctx.Err() != nil {
		fmt.Printf("\n🚫 Загрузка отменена\n")
		return fmt.Errorf("операция отменена: %w", ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("ошибка загрузки файла: %w", err)
	}

	fmt.Printf("\n✅ Медитация успешно загружена!\n")
	fmt.Printf("   ID: %d\n", med.ID)
	fmt.Printf("   Название: %s\n", med.Title)
	if med.Narrator != "" {
		fmt.Printf("   Ведущий: %s\n", med.Narrator)
	}
	if med.Intention != "" {
		fmt.Printf("   Намерение: %s\n", med.Intention)
	}
	if med.Background != "" {
		fmt.Printf("   Фон: %s\n", med.Background)
	}
	fmt.Printf("   URL: %s\n", med.URL)
	fmt.Printf("\n📦 Данные добавлены в %s\n", app.Config.DataFile)
	return nil
}

// uploadProgress строка прогресса: процент, скорость, прошедшее и оставшееся время
func uploadProgress(done, total int64, elapsed time.Duration) string {
	var percentage, speed float64
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}
	if elapsed > 0 {
		speed = float64(done) / elapsed.Seconds()
	}

	var remaining time.Duration
	if speed > 0 && total > done {
		remaining = time.Duration(float64(total-done) / speed * float64(time.Second))
	}

	return fmt.Sprintf("Прогресс: %.1f%% | Скорость: %s/s | Прошло: %s | Осталось: %s",
		percentage,
		utils.FormatFileSize(int64(speed)),
		utils.FormatDuration(elapsed),
		utils.FormatDuration(remaining))
}
