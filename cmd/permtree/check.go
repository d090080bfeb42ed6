// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package main

import (
	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/resolver"
)

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	var (
		world  string
		server string
	)
	cmd := &cobra.Command{
		Use:   "check <user-uuid> <permission>",
		Short: "Resolve a permission for a user",
		Long: `Resolve a single permission for a user in the given context and
print the tristate outcome (true, false, or undefined).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return oops.Code("BAD_UUID").With("arg", args[0]).Wrap(err)
			}

			eng, err := openEngine(cmd)
			if err != nil {
				return err
			}
			user, err := eng.LoadUser(cmd.Context(), id)
			if err != nil {
				return err
			}

			query := buildContext(world, server)
			result := eng.CheckPermission(user, query, args[1])
			cmd.Println(result.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&world, "world", "", "world context value")
	cmd.Flags().StringVar(&server, "server", "", "server context value")
	return cmd
}

// NewInfoCmd creates the info subcommand.
func NewInfoCmd() *cobra.Command {
	var (
		world  string
		server string
	)
	cmd := &cobra.Command{
		Use:   "info <user-uuid>",
		Short: "Show a user's resolved permission state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return oops.Code("BAD_UUID").With("arg", args[0]).Wrap(err)
			}

			eng, err := openEngine(cmd)
			if err != nil {
				return err
			}
			user, err := eng.LoadUser(cmd.Context(), id)
			if err != nil {
				return err
			}

			query := buildContext(world, server)
			cmd.Printf("uuid:          %s\n", user.UUID())
			if user.Username() != "" {
				cmd.Printf("username:      %s\n", user.Username())
			}
			cmd.Printf("primary group: %s\n", user.PrimaryGroup())
			if prefix, ok := eng.Prefix(user, query); ok {
				cmd.Printf("prefix:        %s (priority %d)\n", prefix.Text, prefix.Priority)
			}
			if suffix, ok := eng.Suffix(user, query); ok {
				cmd.Printf("suffix:        %s (priority %d)\n", suffix.Text, suffix.Priority)
			}
			cmd.Println("nodes:")
			for _, n := range eng.Resolve(user, query, resolver.FilterAll) {
				cmd.Printf("  %s\n", n.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&world, "world", "", "world context value")
	cmd.Flags().StringVar(&server, "server", "", "server context value")
	return cmd
}

func buildContext(world, server string) contextset.ImmutableSet {
	acc := contextset.New()
	if world != "" {
		acc.Add(contextset.WorldKey, world)
	}
	if server != "" {
		acc.Add(contextset.ServerKey, server)
	}
	return acc.Immutable()
}
