// Package identity turns free-form moderator input (raw ID, the
// dashboard's "Display (user#1234)" rendering, or a plain name) into a
// canonical user ID.
package identity

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"skyfall-dashboard/internal/discord"
)

var snowflakePattern = regexp.MustCompile(`^\d{17,19}$`)

// NotFoundError is surfaced to the dashboard with actionable guidance.
type NotFoundError struct {
	Input string
}

func (e *NotFoundError) Error() string {
	return "User not found. Please select a user from the dropdown or provide Discord user ID."
}

type MemberLister interface {
	GuildMembers(ctx context.Context, guildID string) ([]discord.Member, error)
}

// Resolver matches input against a single member page (at most 1000
// entries). Guilds larger than that need pagination this resolver does not
// implement; that limitation is accepted, not hidden.
type Resolver struct {
	members MemberLister
}

func NewResolver(members MemberLister) *Resolver {
	return &Resolver{members: members}
}

// ResolveUserID applies three strategies in priority order, first match
// wins: snowflake-shaped input is returned directly without any lookup;
// input containing both "(" and "#" is matched against each member's
// rendered form; anything else is matched as a plain name.
func (r *Resolver) ResolveUserID(ctx context.Context, rawInput, guildID string) (string, error) {
	input := strings.TrimSpace(rawInput)
	if input == "" {
		return "", &NotFoundError{Input: rawInput}
	}
	if snowflakePattern.MatchString(input) {
		return input, nil
	}

	members, err := r.members.GuildMembers(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("member lookup: %w", err)
	}

	if strings.Contains(input, "(") && strings.Contains(input, "#") {
		return matchRendered(input, members)
	}
	return matchName(input, members)
}

func rendered(member discord.Member) string {
	return fmt.Sprintf("%s (%s#%s)", member.DisplayName(), member.User.Username, member.User.Discriminator)
}

func matchRendered(input string, members []discord.Member) (string, error) {
	for _, member := range members {
		if member.User == nil {
			continue
		}
		if strings.EqualFold(input, rendered(member)) {
			return member.User.ID, nil
		}
	}
	// Looser fallbacks: the search term may be just the name half of the
	// rendering, or may embed the raw ID.
	for _, member := range members {
		if member.User == nil {
			continue
		}
		if strings.EqualFold(input, member.DisplayName()) || strings.EqualFold(input, member.User.Username) {
			return member.User.ID, nil
		}
		if strings.Contains(input, member.User.ID) {
			return member.User.ID, nil
		}
	}
	return "", &NotFoundError{Input: input}
}

func matchName(input string, members []discord.Member) (string, error) {
	for _, member := range members {
		if member.User == nil {
			continue
		}
		if strings.EqualFold(input, member.Nick) && member.Nick != "" {
			return member.User.ID, nil
		}
		if strings.EqualFold(input, member.User.GlobalName) && member.User.GlobalName != "" {
			return member.User.ID, nil
		}
		if strings.EqualFold(input, member.User.Username) {
			return member.User.ID, nil
		}
	}
	return "", &NotFoundError{Input: input}
}
