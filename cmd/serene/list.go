package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssbullock/serene/internal/utils"
)

// createListCommand создает команду list с привязкой к экземпляру приложения
func (app *Application) createListCommand() *cobra.Command {
	var intention string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meditations from the library",
		Long:  `Display meditations stored in the library, optionally filtered by intention.`,
		Run: func(_ *cobra.Command, _ []string) {
			app.listMeditations(intention)
		},
	}

	cmd.Flags().StringVarP(&intention, "intention", "i", "", "show only meditations with this intention")
	return cmd
}

func (app *Application) listMeditations(intention string) {
	meditations := app.Library.ByIntention(intention)
	if len(meditations) == 0 {
		if intention != "" {
			fmt.Printf("📚 Нет медитаций с намерением %q. Доступны: %s\n", intention, strings.Join(app.Library.Intentions(), ", "))
			return
		}
		fmt.Println("📚 Библиотека пуста. Добавьте медитации с помощью команды 'add'.")
		return
	}

	fmt.Printf("📚 Найдено медитаций: %d\n\n", len(meditations))

	// Выводим заголовок таблицы
	fmt.Printf("%-4s %-30s %-20s %-12s %-14s %-10s %-10s\n",
		"ID", "Название", "Ведущий", "Намерение", "Фон", "Длина", "Размер")
	fmt.Println(strings.Repeat("-", 110))

	for _, med := range meditations {
		duration := "N/A"
		if med.Length > 0 {
			duration = utils.FormatDurationFromSeconds(med.Length)
		}

		background := med.Background
		if background == "" {
			background = "-"
		}

		fmt.Printf("%-4d %-30s %-20s %-12s %-14s %-10s %-10s\n",
			med.ID,
			utils.TruncateString(med.Title, 28),
			utils.TruncateString(med.Narrator, 18),
			utils.TruncateString(med.Intention, 12),
			utils.TruncateString(background, 14),
			duration,
			utils.FormatFileSize(med.FileSize))
	}

	fmt.Println()
	fmt.Println("💡 Используйте 'serene play [ID]' для воспроизведения медитации")
}
