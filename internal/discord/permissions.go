package discord

import (
	"fmt"
	"strconv"
)

// PermissionSet is the guild permission bitmask. The upstream API serializes
// it as a decimal string; flags above bit 31 exist, so it must always travel
// as an unsigned 64-bit value.
type PermissionSet uint64

const (
	PermissionKickMembers     PermissionSet = 1 << 1
	PermissionBanMembers      PermissionSet = 1 << 2
	PermissionAdministrator   PermissionSet = 1 << 3
	PermissionManageGuild     PermissionSet = 1 << 5
	PermissionModerateMembers PermissionSet = 1 << 40
)

func ParsePermissions(raw string) (PermissionSet, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid permission integer %q: %w", raw, err)
	}
	return PermissionSet(value), nil
}

func (p PermissionSet) Has(flag PermissionSet) bool {
	return p&flag != 0
}

// GuildMembership is the caller's standing in one guild, fetched fresh on
// every authorization check since permissions can change between calls.
type GuildMembership struct {
	GuildID     string
	UserID      string
	IsOwner     bool
	Permissions PermissionSet
	Roles       []string
}

// CanModerate gates dashboard-level moderation visibility. Owners bypass
// bit checks entirely.
func CanModerate(guild GuildMembership) bool {
	if guild.IsOwner {
		return true
	}
	if guild.Permissions.Has(PermissionAdministrator) {
		return true
	}
	return guild.Permissions.Has(PermissionManageGuild)
}

// CanPerformModerationAction is the stricter gate for issuing mutations;
// it additionally accepts ModerateMembers, which covers timeouts.
func CanPerformModerationAction(guild GuildMembership) bool {
	if CanModerate(guild) {
		return true
	}
	return guild.Permissions.Has(PermissionModerateMembers)
}
