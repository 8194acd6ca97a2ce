package discord

import "testing"

func TestParsePermissions(t *testing.T) {
	// ModerateMembers lives above bit 32; a 32-bit parse would truncate it.
	set, err := ParsePermissions("1099511627776")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !set.Has(PermissionModerateMembers) {
		t.Fatal("expected ModerateMembers bit set")
	}

	if _, err := ParsePermissions("not-a-number"); err == nil {
		t.Fatal("expected error for malformed permission string")
	}

	set, err = ParsePermissions("")
	if err != nil || set != 0 {
		t.Fatalf("expected empty string to parse as 0, got %d, %v", set, err)
	}
}

func TestCanModerateAdministrator(t *testing.T) {
	for _, extra := range []PermissionSet{0, PermissionKickMembers, 1 << 20, 1 << 45} {
		guild := GuildMembership{Permissions: PermissionAdministrator | extra}
		if !CanModerate(guild) {
			t.Fatalf("administrator with extra bits %d should moderate", extra)
		}
	}
}

func TestCanModerateOwnerWithZeroPermissions(t *testing.T) {
	guild := GuildMembership{IsOwner: true, Permissions: 0}
	if !CanModerate(guild) {
		t.Fatal("owner should moderate even with zero permissions")
	}
}

func TestCanModerateManageGuild(t *testing.T) {
	if !CanModerate(GuildMembership{Permissions: PermissionManageGuild}) {
		t.Fatal("ManageGuild should grant moderation")
	}
	if CanModerate(GuildMembership{Permissions: PermissionKickMembers | PermissionBanMembers}) {
		t.Fatal("kick/ban bits alone should not grant dashboard moderation")
	}
}

func TestCanPerformModerationAction(t *testing.T) {
	if !CanPerformModerationAction(GuildMembership{Permissions: PermissionModerateMembers}) {
		t.Fatal("ModerateMembers should allow moderation actions")
	}
	if CanPerformModerationAction(GuildMembership{Permissions: PermissionBanMembers}) {
		t.Fatal("BanMembers alone should not pass the action gate")
	}
}
