package main

import (
	"os"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/commands/catalog"
	"charfred/internal/docs"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var tmplPath, outPath string

	root := &cobra.Command{
		Use:           "build-readme",
		Short:         "Writes the command reference from the registered commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := command.NewRegistry()
			if err := catalog.Register(commands.Deps{Registry: reg}); err != nil {
				return err
			}
			return docs.UpdateReadme(reg, tmplPath, outPath)
		},
	}
	root.Flags().StringVar(&tmplPath, "template", "", "template file with a {{.CommandSections}} placeholder")
	root.Flags().StringVar(&outPath, "out", "COMMANDS.md", "output file")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("failed to build the command reference")
		os.Exit(1)
	}
}
