// Package discord adapts the platform boundary to a live Discord gateway
// through discordgo. Capabilities are translated to permission bits here and
// nowhere else.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/civitasdev/civitas/internal/govern"
	"github.com/civitasdev/civitas/internal/platform"
)

// capabilityBits maps the opaque capability set onto Discord permission
// bits. Deliberately coarse; anything finer belongs to server moderators,
// not to provisioning.
var capabilityBits = map[govern.Capability]int64{
	govern.CapView:     discordgo.PermissionViewChannel,
	govern.CapSend:     discordgo.PermissionSendMessages,
	govern.CapInteract: discordgo.PermissionAddReactions | discordgo.PermissionUseExternalEmojis,
	govern.CapModerate: discordgo.PermissionManageMessages | discordgo.PermissionModerateMembers,
	govern.CapManage:   discordgo.PermissionManageChannels,
}

func permissions(caps []govern.Capability) int64 {
	var bits int64
	for _, c := range caps {
		bits |= capabilityBits[c]
	}
	return bits
}

// Client implements platform.Client on a discordgo session.
type Client struct {
	session *discordgo.Session
}

var _ platform.Client = (*Client)(nil)

// NewClient wraps an opened discordgo session.
func NewClient(session *discordgo.Session) (*Client, error) {
	if session == nil {
		return nil, fmt.Errorf("discord: session is required")
	}
	return &Client{session: session}, nil
}

// Community resolves guild metadata. Discord's everyone role shares the
// guild's own id.
func (c *Client) Community(ctx context.Context, communityID string) (platform.CommunityInfo, error) {
	guild, err := c.session.Guild(communityID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.CommunityInfo{}, fmt.Errorf("discord: fetch guild %s: %w", communityID, err)
	}
	members := guild.MemberCount
	if members == 0 {
		members = guild.ApproximateMemberCount
	}
	return platform.CommunityInfo{
		ID:             guild.ID,
		Name:           guild.Name,
		OwnerID:        guild.OwnerID,
		MemberCount:    members,
		EveryoneRoleID: guild.ID,
	}, nil
}

func (c *Client) Roles(ctx context.Context, communityID string) ([]platform.RoleInfo, error) {
	roles, err := c.session.GuildRoles(communityID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: list roles: %w", err)
	}
	out := make([]platform.RoleInfo, 0, len(roles))
	for _, role := range roles {
		out = append(out, platform.RoleInfo{
			ID:      role.ID,
			Name:    role.Name,
			Color:   role.Color,
			Managed: role.Managed,
		})
	}
	return out, nil
}

func (c *Client) CreateRole(ctx context.Context, communityID string, spec platform.RoleSpec) (platform.RoleInfo, error) {
	perms := permissions(spec.Capabilities)
	color := spec.Color
	role, err := c.session.GuildRoleCreate(communityID, &discordgo.RoleParams{
		Name:        spec.Name,
		Color:       &color,
		Permissions: &perms,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return platform.RoleInfo{}, fmt.Errorf("discord: create role %s: %w", spec.Name, err)
	}
	return platform.RoleInfo{ID: role.ID, Name: role.Name, Color: role.Color}, nil
}

func (c *Client) DeleteRole(ctx context.Context, communityID, roleID string) error {
	if err := c.session.GuildRoleDelete(communityID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: delete role %s: %w", roleID, err)
	}
	return nil
}

func (c *Client) Channels(ctx context.Context, communityID string) ([]platform.ChannelInfo, error) {
	channels, err := c.session.GuildChannels(communityID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: list channels: %w", err)
	}
	out := make([]platform.ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		out = append(out, platform.ChannelInfo{
			ID:       ch.ID,
			Name:     ch.Name,
			ParentID: ch.ParentID,
			Category: ch.Type == discordgo.ChannelTypeGuildCategory,
		})
	}
	return out, nil
}

func (c *Client) CreateChannel(ctx context.Context, communityID string, spec platform.ChannelSpec) (platform.ChannelInfo, error) {
	data := discordgo.GuildChannelCreateData{
		Name:     spec.Name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: spec.ParentID,
	}
	if spec.Category {
		data.Type = discordgo.ChannelTypeGuildCategory
	}
	for _, ov := range spec.Overwrites {
		data.PermissionOverwrites = append(data.PermissionOverwrites, &discordgo.PermissionOverwrite{
			ID:    ov.RoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: permissions(ov.Allow),
			Deny:  permissions(ov.Deny),
		})
	}
	ch, err := c.session.GuildChannelCreateComplex(communityID, data, discordgo.WithContext(ctx))
	if err != nil {
		return platform.ChannelInfo{}, fmt.Errorf("discord: create channel %s: %w", spec.Name, err)
	}
	return platform.ChannelInfo{
		ID:       ch.ID,
		Name:     ch.Name,
		ParentID: ch.ParentID,
		Category: ch.Type == discordgo.ChannelTypeGuildCategory,
	}, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: delete channel %s: %w", channelID, err)
	}
	return nil
}
