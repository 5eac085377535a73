package platform

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client for tests and the wizard preview. It records
// every create and delete so tests can assert the exact external call
// pattern.
type Fake struct {
	mu        sync.Mutex
	community CommunityInfo
	roles     map[string]RoleInfo
	channels  map[string]ChannelInfo
	nextID    int

	RoleDeletes    []string
	ChannelDeletes []string
	RoleCreates    int
	ChannelCreates int

	// FailRoleCreate and FailChannelCreate make the next matching create
	// call fail once (provisioning failure-path tests).
	FailRoleCreate    string
	FailChannelCreate string
}

// NewFake builds a fake platform hosting one community.
func NewFake(community CommunityInfo) *Fake {
	f := &Fake{
		community: community,
		roles:     map[string]RoleInfo{},
		channels:  map[string]ChannelInfo{},
	}
	if community.EveryoneRoleID != "" {
		f.roles[community.EveryoneRoleID] = RoleInfo{
			ID:      community.EveryoneRoleID,
			Name:    "@everyone",
			Managed: true,
		}
	}
	return f
}

var _ Client = (*Fake)(nil)

func (f *Fake) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// Community returns the hosted community.
func (f *Fake) Community(_ context.Context, communityID string) (CommunityInfo, error) {
	if communityID != f.community.ID {
		return CommunityInfo{}, fmt.Errorf("platform: unknown community %s", communityID)
	}
	return f.community, nil
}

// Roles lists platform roles.
func (f *Fake) Roles(_ context.Context, communityID string) ([]RoleInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RoleInfo, 0, len(f.roles))
	for _, role := range f.roles {
		out = append(out, role)
	}
	return out, nil
}

// CreateRole registers a new role.
func (f *Fake) CreateRole(_ context.Context, communityID string, spec RoleSpec) (RoleInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRoleCreate != "" && f.FailRoleCreate == spec.Name {
		f.FailRoleCreate = ""
		return RoleInfo{}, fmt.Errorf("platform: create role %s: simulated failure", spec.Name)
	}
	role := RoleInfo{ID: f.id("role"), Name: spec.Name, Color: spec.Color}
	f.roles[role.ID] = role
	f.RoleCreates++
	return role, nil
}

// DeleteRole removes a role and records the call.
func (f *Fake) DeleteRole(_ context.Context, communityID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[roleID]; !ok {
		return fmt.Errorf("platform: unknown role %s", roleID)
	}
	delete(f.roles, roleID)
	f.RoleDeletes = append(f.RoleDeletes, roleID)
	return nil
}

// Channels lists platform channels and categories.
func (f *Fake) Channels(_ context.Context, communityID string) ([]ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ChannelInfo, 0, len(f.channels))
	for _, ch := range f.channels {
		out = append(out, ch)
	}
	return out, nil
}

// CreateChannel registers a new channel or category.
func (f *Fake) CreateChannel(_ context.Context, communityID string, spec ChannelSpec) (ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailChannelCreate != "" && f.FailChannelCreate == spec.Name {
		f.FailChannelCreate = ""
		return ChannelInfo{}, fmt.Errorf("platform: create channel %s: simulated failure", spec.Name)
	}
	ch := ChannelInfo{ID: f.id("chan"), Name: spec.Name, ParentID: spec.ParentID, Category: spec.Category}
	f.channels[ch.ID] = ch
	f.ChannelCreates++
	return ch, nil
}

// DeleteChannel removes a channel and records the call.
func (f *Fake) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return fmt.Errorf("platform: unknown channel %s", channelID)
	}
	delete(f.channels, channelID)
	f.ChannelDeletes = append(f.ChannelDeletes, channelID)
	return nil
}

// RemoveChannel silently drops a channel without recording a delete, to
// simulate a channel disappearing out from under the provisioner.
func (f *Fake) RemoveChannel(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
}

// HasRole reports whether a role exists (test helper).
func (f *Fake) HasRole(roleID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.roles[roleID]
	return ok
}

// HasChannel reports whether a channel exists (test helper).
func (f *Fake) HasChannel(channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[channelID]
	return ok
}
