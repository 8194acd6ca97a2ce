package discord

import (
	"encoding/json"
	"fmt"
	"io"
)

// Upstream response schemas. Payloads are decoded into these explicitly so
// a malformed body fails here with a clear error instead of leaking zero
// values into business logic.

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
}

type Member struct {
	User *User  `json:"user"`
	Nick string `json:"nick"`
}

// DisplayName is the name the dashboard renders for a member: nickname,
// then global name, then username.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

// Guild is the /users/@me/guilds shape: permissions arrive as a decimal
// string scoped to the requesting user.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

func decodeUser(r io.Reader) (User, error) {
	var user User
	if err := json.NewDecoder(r).Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return User{}, fmt.Errorf("user payload missing id")
	}
	return user, nil
}

func decodeMembers(r io.Reader) ([]Member, error) {
	var members []Member
	if err := json.NewDecoder(r).Decode(&members); err != nil {
		return nil, fmt.Errorf("decode member list: %w", err)
	}
	for i, member := range members {
		if member.User == nil || member.User.ID == "" {
			return nil, fmt.Errorf("member %d missing user id", i)
		}
	}
	return members, nil
}

func decodeGuilds(r io.Reader) ([]Guild, error) {
	var guilds []Guild
	if err := json.NewDecoder(r).Decode(&guilds); err != nil {
		return nil, fmt.Errorf("decode guild list: %w", err)
	}
	for i, guild := range guilds {
		if guild.ID == "" {
			return nil, fmt.Errorf("guild %d missing id", i)
		}
	}
	return guilds, nil
}
