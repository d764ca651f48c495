package api

import (
	"fmt"
	"strings"
	"time"
)

// Channel is a named deployment track updates are published to.
type Channel string

const (
	ChannelProduction  Channel = "production"
	ChannelStaging     Channel = "staging"
	ChannelDevelopment Channel = "development"
)

// Channels lists every channel in display order.
var Channels = []Channel{ChannelProduction, ChannelStaging, ChannelDevelopment}

func (c Channel) Valid() bool {
	switch c {
	case ChannelProduction, ChannelStaging, ChannelDevelopment:
		return true
	}
	return false
}

// ParseChannel returns the channel named s, case-insensitively.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid channel %q (want production, staging or development)", s)
	}
	return c, nil
}

// Platform is a client platform an update targets.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// Platforms lists every platform in display order.
var Platforms = []Platform{PlatformIOS, PlatformAndroid, PlatformWeb}

// DefaultPlatforms is used when a publish does not name any valid platform.
var DefaultPlatforms = []Platform{PlatformIOS, PlatformAndroid}

func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

// ParsePlatforms parses a comma-separated platform list. Unknown entries are
// returned separately so callers can warn about them.
func ParsePlatforms(s string) (valid []Platform, invalid []string) {
	seen := make(map[Platform]bool)
	for _, raw := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		p := Platform(name)
		if !p.Valid() {
			invalid = append(invalid, raw)
			continue
		}
		if !seen[p] {
			seen[p] = true
			valid = append(valid, p)
		}
	}
	return valid, invalid
}

// Role is the permission level a user holds on an app.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleDeveloper}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDeveloper
}

// App is an application registered on the server.
type App struct {
	ID            int64     `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Slug          string    `json:"slug" yaml:"slug"`
	Description   string    `json:"description" yaml:"description"`
	OwnerID       int64     `json:"ownerId" yaml:"ownerId"`
	GithubRepoURL string    `json:"githubRepoUrl,omitempty" yaml:"githubRepoUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Update is a published bundle on one channel of one app. Updates are never
// edited; promotion and rollback create new records.
type Update struct {
	ID             int64     `json:"id" yaml:"id"`
	AppID          int64     `json:"appId" yaml:"appId"`
	Version        string    `json:"version" yaml:"version"`
	Channel        Channel   `json:"channel" yaml:"channel"`
	RuntimeVersion string    `json:"runtimeVersion" yaml:"runtimeVersion"`
	IsRollback     bool      `json:"isRollback" yaml:"isRollback"`
	BundleID       int64     `json:"bundleId" yaml:"bundleId"`
	ManifestID     int64     `json:"manifestId" yaml:"manifestId"`
	PublishedBy    int64     `json:"publishedBy" yaml:"publishedBy"`
	CreatedAt      time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// User is the authenticated account returned by /auth/me.
type User struct {
	ID        int64  `json:"id" yaml:"id"`
	Username  string `json:"username" yaml:"username"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
}

// CreateAppRequest is the body of POST /apps.
type CreateAppRequest struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug" validate:"required,slug"`
	Description string `json:"description"`
}

// UpdateMetadata describes a publish. It is sent alongside the archive and
// stored inside it as metadata.json.
type UpdateMetadata struct {
	Version        string   `json:"version" validate:"required"`
	Channel        string   `json:"channel" validate:"required,oneof=production staging development"`
	RuntimeVersion string   `json:"runtimeVersion" validate:"required"`
	Platforms      []string `json:"platforms" validate:"min=1,dive,oneof=ios android web"`
}

// InviteResult is the server's reply to an invitation.
type InviteResult struct {
	Message string `json:"message"`
}

// PromoteResult wraps the update created by a promotion.
type PromoteResult struct {
	Message string `json:"message,omitempty"`
	Update  Update `json:"update"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}
