// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package main

import (
	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/permtree/permtree/internal/model"
)

// NewTrackCmd creates the track subcommand with promote/demote verbs.
func NewTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Promote or demote users along tracks",
	}
	cmd.AddCommand(newPromoteCmd())
	cmd.AddCommand(newDemoteCmd())
	return cmd
}

func newPromoteCmd() *cobra.Command {
	var world string
	cmd := &cobra.Command{
		Use:   "promote <track> <user-uuid>",
		Short: "Promote a user one position along a track",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return oops.Code("BAD_UUID").With("arg", args[1]).Wrap(err)
			}
			eng, err := openEngine(cmd)
			if err != nil {
				return err
			}
			user, err := eng.LoadUser(cmd.Context(), id)
			if err != nil {
				return err
			}

			result, err := eng.Promote(user, args[0], buildContext(world, ""), nil, true)
			if err != nil {
				return err
			}
			printPromotion(cmd, result)
			if result.WasSuccessful() {
				return eng.SaveUser(cmd.Context(), user)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&world, "world", "", "world context value")
	return cmd
}

func newDemoteCmd() *cobra.Command {
	var world string
	cmd := &cobra.Command{
		Use:   "demote <track> <user-uuid>",
		Short: "Demote a user one position along a track",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return oops.Code("BAD_UUID").With("arg", args[1]).Wrap(err)
			}
			eng, err := openEngine(cmd)
			if err != nil {
				return err
			}
			user, err := eng.LoadUser(cmd.Context(), id)
			if err != nil {
				return err
			}

			result, err := eng.Demote(user, args[0], buildContext(world, ""), nil, false)
			if err != nil {
				return err
			}
			printDemotion(cmd, result)
			if result.WasSuccessful() {
				return eng.SaveUser(cmd.Context(), user)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&world, "world", "", "world context value")
	return cmd
}

func printPromotion(cmd *cobra.Command, r model.PromotionResult) {
	switch r.Outcome {
	case model.PromotionSuccess:
		cmd.Printf("promoted %s -> %s\n", r.From, r.To)
	case model.PromotionAddedToFirst:
		if r.To == "" {
			cmd.Println("user is not on the track; nothing changed")
		} else {
			cmd.Printf("added to first group %s\n", r.To)
		}
	case model.PromotionEndOfTrack:
		cmd.Println("already at the end of the track")
	case model.PromotionMalformedTrack:
		cmd.Printf("track is malformed: group %s is not loaded\n", r.To)
	case model.PromotionAmbiguousCall:
		cmd.Println("user holds several track groups; disambiguate manually")
	case model.PromotionUndefinedFailure:
		cmd.Println("promotion was rejected")
	}
}

func printDemotion(cmd *cobra.Command, r model.DemotionResult) {
	switch r.Outcome {
	case model.DemotionSuccess:
		cmd.Printf("demoted %s -> %s\n", r.From, r.To)
	case model.DemotionRemovedFromFirst:
		if r.From == "" {
			cmd.Println("user is at the first group; nothing changed")
		} else {
			cmd.Printf("removed from first group %s\n", r.From)
		}
	case model.DemotionNotOnTrack:
		cmd.Println("user is not on the track")
	case model.DemotionMalformedTrack:
		cmd.Printf("track is malformed: group %s is not loaded\n", r.To)
	case model.DemotionAmbiguousCall:
		cmd.Println("user holds several track groups; disambiguate manually")
	case model.DemotionUndefinedFailure:
		cmd.Println("demotion was rejected")
	}
}
