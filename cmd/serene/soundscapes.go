package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// createSoundscapesCommand создает команду soundscapes
func (app *Application) createSoundscapesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "soundscapes",
		Short: "List background soundscapes",
		Long:  `Display background soundscapes that can be looped under a narration.`,
		Run: func(_ *cobra.Command, _ []string) {
			app.listSoundscapes()
		},
	}
}

func (app *Application) listSoundscapes() {
	entries := app.Catalog.List()
	fmt.Printf("🌿 Доступно фонов: %d\n\n", len(entries))

	fmt.Printf("%-16s %-24s %s\n", "ID", "Название", "Источник")
	fmt.Println(strings.Repeat("-", 80))

	for _, e := range entries {
		source := e.URL
		if source == "" {
			source = e.Key
		}
		fmt.Printf("%-16s %-24s %s\n", e.ID, e.Title, source)
	}

	fmt.Println()
	fmt.Println("💡 Используйте 'serene play [ID] --background [фон]' или 'none' для тишины")
}
