package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssbullock/serene/internal/uploader"
)

// createDeleteCommand создает команду delete с привязкой к экземпляру приложения
func (app *Application) createDeleteCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a meditation by ID",
		Long:  `Delete a meditation from both S3 storage and the library by its ID.`,
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Printf("❌ Ошибка: неверный ID '%s'. ID должен быть числом.\n", args[0])
				return
			}
			app.deleteMeditation(ctx, id)
		},
	}
}

func (app *Application) deleteMeditation(ctx context.Context, id int) {
	med, err := app.Library.Get(id)
	if err != nil {
		fmt.Printf("❌ Ошибка: %v\n", err)
		return
	}

	fmt.Printf("🗑️  Удаляем медитацию: %s\n", describe(med.Narrator, med.Title))

	// Без хранилища запись удаляется только из библиотеки
	if app.Storage == nil {
		fmt.Println("⚠️  Предупреждение: хранилище S3 не настроено, файл не удален")
		if err := app.Library.Delete(id); err != nil {
			fmt.Printf("❌ Ошибка удаления из библиотеки: %v\n", err)
			return
		}
		fmt.Println("✅ Медитация удалена из библиотеки")
		return
	}

	service := uploader.NewService(app.Storage, nil, app.Library, app.Logger)
	if err := service.Remove(ctx, id); err != nil {
		fmt.Printf("❌ Ошибка удаления: %v\n", err)
		return
	}

	fmt.Println("✅ Медитация удалена из хранилища и библиотеки")
}

// describe возвращает "Ведущий - Название" или только название
func describe(narrator, title string) string {
	if narrator == "" {
		return title
	}
	return narrator + " - " + title
}
