// Package catalog assembles every command group.
package catalog

import (
	"fmt"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/commands/admin"
	"charfred/internal/commands/core"
	"charfred/internal/commands/historian"
	"charfred/internal/commands/process"
	"charfred/internal/storage"
)

// Commands returns all top level commands.
func Commands(deps commands.Deps) []command.Command {
	var all []command.Command
	all = append(all, core.Commands(deps)...)
	all = append(all, admin.Commands(deps)...)
	all = append(all, historian.Commands(deps)...)
	all = append(all, process.Commands(deps, nil)...)
	return all
}

// Register adds all commands to deps.Registry.
func Register(deps commands.Deps) error {
	if deps.Registry == nil {
		return fmt.Errorf("catalog: no registry")
	}
	for _, c := range Commands(deps) {
		if err := deps.Registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSettings registers the permission nodes and cog settings the
// commands in reg rely on. It returns the nodes that were new.
func EnsureSettings(store *storage.Storage, reg *command.Registry) ([]string, error) {
	added, err := store.EnsureNodes(reg.Nodes())
	if err != nil {
		return nil, fmt.Errorf("failed to register permission nodes: %w", err)
	}
	if err := store.EnsureCogSetting(process.TargetsSetting, "", process.TargetsPrompt); err != nil {
		return added, fmt.Errorf("failed to register %s: %w", process.TargetsSetting, err)
	}
	return added, nil
}
