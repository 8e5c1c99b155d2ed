package admin

import (
	"errors"
	"fmt"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/permission"
	"charfred/internal/storage"

	"github.com/rs/zerolog/log"
)

const nodePrompt = "# Please enter the minimum role required to use %s commands.\n" +
	"Enter \"everyone\" to have no role restriction.\n" +
	"Enter \"owner_only\" to restrict to bot owner."

type PermissionsCommand struct{}

func (c *PermissionsCommand) Name() string        { return "permissions" }
func (c *PermissionsCommand) Description() string { return "Lists the permission nodes and who may use them" }
func (c *PermissionsCommand) Aliases() []string   { return []string{"perms"} }
func (c *PermissionsCommand) Group() string       { return "admin" }
func (c *PermissionsCommand) Hidden() bool        { return true }

func (c *PermissionsCommand) Subcommands() []command.Command {
	return []command.Command{&PermissionsEditCommand{}, &HierarchyCommand{}}
}

func (c *PermissionsCommand) Run(ctx *command.MessageContext) error {
	nodes := ctx.Storage.Nodes()
	if len(nodes) == 0 {
		return commands.Markdown(ctx, "< No permission nodes registered! >")
	}
	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		lines = append(lines, fmt.Sprintf("%s:\n\t%s", n.Name, n.Requirement))
	}
	return commands.MarkdownText(ctx, strings.Join(lines, "\n"))
}

type PermissionsEditCommand struct{}

func (c *PermissionsEditCommand) Name() string        { return "edit" }
func (c *PermissionsEditCommand) Description() string { return "Sets the minimum role of a permission node" }
func (c *PermissionsEditCommand) Aliases() []string   { return []string{} }
func (c *PermissionsEditCommand) Group() string       { return "" }
func (c *PermissionsEditCommand) OwnerOnly() bool     { return true }

func (c *PermissionsEditCommand) Run(ctx *command.MessageContext) error {
	node := ctx.Arg(0)
	if node == "" {
		return command.Missing("node")
	}
	if _, ok := ctx.Storage.Node(node); !ok {
		return commands.Markdown(ctx, "> %s is not registered!", node)
	}

	answer, timedOut, err := ctx.Reply.PromptInput(ctx.Ctx(), fmt.Sprintf(nodePrompt, node))
	if err != nil || timedOut {
		return err
	}

	req := permission.ParseInput(answer)
	if err := ctx.Storage.SetNode(node, req); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return commands.Markdown(ctx, "> %s is not registered!", node)
		}
		return err
	}
	log.Info().Str("node", node).Str("requirement", req.String()).Msg("permission node edited")
	return commands.Markdown(ctx, "# Edits to %s saved successfully!", node)
}

type HierarchyCommand struct{}

func (c *HierarchyCommand) Name() string        { return "hierarchy" }
func (c *HierarchyCommand) Description() string { return "Lists the roles considered for permission checks" }
func (c *HierarchyCommand) Aliases() []string   { return []string{} }
func (c *HierarchyCommand) Group() string       { return "" }

func (c *HierarchyCommand) Subcommands() []command.Command {
	return []command.Command{&HierarchyAddCommand{}, &HierarchyRemoveCommand{}}
}

func (c *HierarchyCommand) Run(ctx *command.MessageContext) error {
	roles := ctx.Storage.Hierarchy()
	if len(roles) == 0 {
		return commands.Markdown(ctx, "< No hierarchy set up! >")
	}
	return commands.Markdown(ctx, "# Role hierarchy:\n%s", strings.Join(roles, "\n"))
}

type HierarchyAddCommand struct{}

func (c *HierarchyAddCommand) Name() string        { return "add" }
func (c *HierarchyAddCommand) Description() string { return "Adds a role to the hierarchy" }
func (c *HierarchyAddCommand) Aliases() []string   { return []string{} }
func (c *HierarchyAddCommand) Group() string       { return "" }
func (c *HierarchyAddCommand) OwnerOnly() bool     { return true }

func (c *HierarchyAddCommand) Run(ctx *command.MessageContext) error {
	role := strings.Join(ctx.Args, " ")
	if role == "" {
		return command.Missing("role")
	}
	err := ctx.Storage.AddToHierarchy(role)
	if errors.Is(err, storage.ErrExists) {
		return commands.Markdown(ctx, "> %s is already in the hierarchy.", role)
	}
	if err != nil {
		return err
	}
	log.Info().Str("role", role).Msg("role added to hierarchy")
	return commands.Markdown(ctx, "# %s added to hierarchy.", role)
}

type HierarchyRemoveCommand struct{}

func (c *HierarchyRemoveCommand) Name() string        { return "remove" }
func (c *HierarchyRemoveCommand) Description() string { return "Removes a role from the hierarchy" }
func (c *HierarchyRemoveCommand) Aliases() []string   { return []string{} }
func (c *HierarchyRemoveCommand) Group() string       { return "" }
func (c *HierarchyRemoveCommand) OwnerOnly() bool     { return true }

func (c *HierarchyRemoveCommand) Run(ctx *command.MessageContext) error {
	role := strings.Join(ctx.Args, " ")
	if role == "" {
		return command.Missing("role")
	}
	err := ctx.Storage.RemoveFromHierarchy(role)
	if errors.Is(err, storage.ErrNotFound) {
		return commands.Markdown(ctx, "> %s was not in hierarchy.", role)
	}
	if err != nil {
		return err
	}
	log.Info().Str("role", role).Msg("role removed from hierarchy")
	return commands.Markdown(ctx, "# %s removed from hierarchy.", role)
}
