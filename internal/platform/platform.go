// Package platform declares the chat-platform boundary. Core packages
// depend only on these operation signatures; internal/platform/discord
// adapts them to a live gateway and Fake backs the tests.
package platform

import (
	"context"

	"github.com/civitasdev/civitas/internal/govern"
)

// CommunityInfo describes the target community.
type CommunityInfo struct {
	ID          string
	Name        string
	OwnerID     string
	MemberCount int
	// EveryoneRoleID is the platform's built-in public role; the
	// VoxPopuli slot binds to it and it is never deleted by us.
	EveryoneRoleID string
}

// RoleInfo mirrors a platform role.
type RoleInfo struct {
	ID      string
	Name    string
	Color   int
	Managed bool
}

// ChannelInfo mirrors a platform channel or category.
type ChannelInfo struct {
	ID       string
	Name     string
	ParentID string
	Category bool
}

// RoleSpec describes a role to create.
type RoleSpec struct {
	Name         string
	Color        int
	Capabilities []govern.Capability
}

// Overwrite grants or denies capabilities for one role on a channel.
type Overwrite struct {
	RoleID string
	Allow  []govern.Capability
	Deny   []govern.Capability
}

// ChannelSpec describes a channel or category to create.
type ChannelSpec struct {
	Name       string
	ParentID   string
	Category   bool
	Overwrites []Overwrite
}

// Client is the role/channel CRUD surface the orchestrators consume.
type Client interface {
	Community(ctx context.Context, communityID string) (CommunityInfo, error)
	Roles(ctx context.Context, communityID string) ([]RoleInfo, error)
	CreateRole(ctx context.Context, communityID string, spec RoleSpec) (RoleInfo, error)
	DeleteRole(ctx context.Context, communityID, roleID string) error
	Channels(ctx context.Context, communityID string) ([]ChannelInfo, error)
	CreateChannel(ctx context.Context, communityID string, spec ChannelSpec) (ChannelInfo, error)
	DeleteChannel(ctx context.Context, channelID string) error
}
