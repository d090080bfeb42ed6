// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package model

import "fmt"

// DataResult is the outcome of a node or track mutation. These are expected
// business outcomes, not errors: callers branch on them.
type DataResult int

// DataResult constants.
const (
	DataSuccess    DataResult = iota // success
	DataAlreadyHas                   // already_has
	DataLacks                        // lacks
)

var dataResultStrings = [...]string{
	"success",
	"already_has",
	"lacks",
}

func (r DataResult) String() string {
	if r >= 0 && int(r) < len(dataResultStrings) {
		return dataResultStrings[r]
	}
	return fmt.Sprintf("unknown(%d)", int(r))
}

// WasSuccessful reports whether the mutation was applied.
func (r DataResult) WasSuccessful() bool { return r == DataSuccess }

// PromotionOutcome tags the result of a track promotion.
type PromotionOutcome int

// PromotionOutcome constants.
const (
	PromotionSuccess          PromotionOutcome = iota // success
	PromotionAddedToFirst                            // added_to_first
	PromotionMalformedTrack                          // malformed_track
	PromotionEndOfTrack                              // end_of_track
	PromotionAmbiguousCall                           // ambiguous_call
	PromotionUndefinedFailure                        // undefined_failure
)

var promotionOutcomeStrings = [...]string{
	"success",
	"added_to_first",
	"malformed_track",
	"end_of_track",
	"ambiguous_call",
	"undefined_failure",
}

func (o PromotionOutcome) String() string {
	if o >= 0 && int(o) < len(promotionOutcomeStrings) {
		return promotionOutcomeStrings[o]
	}
	return fmt.Sprintf("unknown(%d)", int(o))
}

// PromotionResult is the tagged outcome of Track.PromoteUser.
//
// Payload fields by outcome:
//   - Success: From = previous group, To = new group.
//   - AddedToFirst: To = first group when the user was added, "" when
//     addToFirst was not requested and nothing was mutated.
//   - MalformedTrack: To = the group name that was not loaded.
//   - other outcomes carry no payload.
type PromotionResult struct {
	Outcome PromotionOutcome
	From    string
	To      string
}

// WasSuccessful reports whether the user's membership changed.
func (r PromotionResult) WasSuccessful() bool {
	return r.Outcome == PromotionSuccess ||
		(r.Outcome == PromotionAddedToFirst && r.To != "")
}

func promotionSuccess(from, to string) PromotionResult {
	return PromotionResult{Outcome: PromotionSuccess, From: from, To: to}
}

func promotionAddedToFirst(group string) PromotionResult {
	return PromotionResult{Outcome: PromotionAddedToFirst, To: group}
}

func promotionMalformedTrack(missing string) PromotionResult {
	return PromotionResult{Outcome: PromotionMalformedTrack, To: missing}
}

func promotionEndOfTrack() PromotionResult {
	return PromotionResult{Outcome: PromotionEndOfTrack}
}

func promotionAmbiguousCall() PromotionResult {
	return PromotionResult{Outcome: PromotionAmbiguousCall}
}

func promotionUndefinedFailure() PromotionResult {
	return PromotionResult{Outcome: PromotionUndefinedFailure}
}

// DemotionOutcome tags the result of a track demotion.
type DemotionOutcome int

// DemotionOutcome constants.
const (
	DemotionSuccess          DemotionOutcome = iota // success
	DemotionRemovedFromFirst                        // removed_from_first
	DemotionMalformedTrack                          // malformed_track
	DemotionNotOnTrack                              // not_on_track
	DemotionAmbiguousCall                           // ambiguous_call
	DemotionUndefinedFailure                        // undefined_failure
)

var demotionOutcomeStrings = [...]string{
	"success",
	"removed_from_first",
	"malformed_track",
	"not_on_track",
	"ambiguous_call",
	"undefined_failure",
}

func (o DemotionOutcome) String() string {
	if o >= 0 && int(o) < len(demotionOutcomeStrings) {
		return demotionOutcomeStrings[o]
	}
	return fmt.Sprintf("unknown(%d)", int(o))
}

// DemotionResult is the tagged outcome of Track.DemoteUser.
//
// Payload fields by outcome:
//   - Success: From = previous group, To = new group.
//   - RemovedFromFirst: From = the group removed, "" when removeFromFirst
//     was not requested and nothing was mutated.
//   - MalformedTrack: To = the group name that was not loaded.
//   - other outcomes carry no payload.
type DemotionResult struct {
	Outcome DemotionOutcome
	From    string
	To      string
}

// WasSuccessful reports whether the user's membership changed.
func (r DemotionResult) WasSuccessful() bool {
	return r.Outcome == DemotionSuccess ||
		(r.Outcome == DemotionRemovedFromFirst && r.From != "")
}

func demotionSuccess(from, to string) DemotionResult {
	return DemotionResult{Outcome: DemotionSuccess, From: from, To: to}
}

func demotionRemovedFromFirst(group string) DemotionResult {
	return DemotionResult{Outcome: DemotionRemovedFromFirst, From: group}
}

func demotionMalformedTrack(missing string) DemotionResult {
	return DemotionResult{Outcome: DemotionMalformedTrack, To: missing}
}

func demotionNotOnTrack() DemotionResult {
	return DemotionResult{Outcome: DemotionNotOnTrack}
}

func demotionAmbiguousCall() DemotionResult {
	return DemotionResult{Outcome: DemotionAmbiguousCall}
}

func demotionUndefinedFailure() DemotionResult {
	return DemotionResult{Outcome: DemotionUndefinedFailure}
}
