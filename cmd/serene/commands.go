package main

import (
	"context"

	"github.com/spf13/cobra"
)

// createRootCommand создает корневую команду с настроенными подкомандами
func (app *Application) createRootCommand(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "serene",
		Short: "Meditation library with narration and background soundscapes",
		Long: `Serene keeps a library of guided meditations in S3 storage and plays
each narration together with a looping background soundscape.`,
		SilenceUsage: true,
	}

	// Добавляем команды, передавая в них экземпляр приложения и контекст
	rootCmd.AddCommand(app.createAddCommand(ctx))
	rootCmd.AddCommand(app.createListCommand())
	rootCmd.AddCommand(app.createPlayCommand(ctx))
	rootCmd.AddCommand(app.createDeleteCommand(ctx))
	rootCmd.AddCommand(app.createSoundscapesCommand())
	rootCmd.AddCommand(app.createTUICommand())

	return rootCmd
}
