// cmd/cli/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"charfred/internal/config"
	"charfred/internal/storage"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errAborted) {
			fmt.Fprintln(os.Stderr, "Aborted!")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var settingsPath string

	open := func(cmd *cobra.Command) (*wizard, error) {
		path := settingsPath
		if path == "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			path = cfg.SettingsPath
		}
		store, err := storage.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open settings: %w", err)
		}
		return newWizard(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), store)
	}

	root := &cobra.Command{
		Use:           "wizard",
		Short:         "Sets up Charfred's settings file",
		Long:          "Walks through token, prefixes, debug webhook, permission nodes and command settings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := open(cmd)
			if err != nil {
				return err
			}
			return w.setup()
		},
	}
	root.PersistentFlags().StringVar(&settingsPath, "settings", "", "settings file, defaults to SETTINGS_PATH")

	nodes := &cobra.Command{
		Use:   "nodes",
		Short: "Asks for the requirement of every permission node",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := open(cmd)
			if err != nil {
				return err
			}
			if err := w.nodes(false); err != nil {
				return err
			}
			if err := w.settings(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved!")
			return nil
		},
	}

	nodes.AddCommand(&cobra.Command{
		Use:   "update",
		Short: "Asks only for permission nodes that are not configured yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := open(cmd)
			if err != nil {
				return err
			}
			return w.nodes(true)
		},
	}, &cobra.Command{
		Use:   "edit",
		Short: "Edits configured permission nodes one by one",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := open(cmd)
			if err != nil {
				return err
			}
			return w.edit()
		},
	})

	root.AddCommand(nodes, &cobra.Command{
		Use:   "token",
		Short: "Shows and changes the stored bot token",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := open(cmd)
			if err != nil {
				return err
			}
			w.p.say("Current token: %s", w.store.Token())
			change, err := w.p.confirm("Would you like to change it?")
			if err != nil || !change {
				return err
			}
			return w.token()
		},
	}, &cobra.Command{
		Use:   "prefixes",
		Short: "Replaces the command prefixes",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := open(cmd)
			if err != nil {
				return err
			}
			w.p.say("Current prefixes: %q", w.store.Prefixes())
			return w.prefixes()
		},
	})
	return root
}
