// Package gateway adapts the disgo client to the narrow platform surfaces the
// shop coordinator and the voice channel manager consume.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/overwatchkr/overwatch-bot/overwatch/autovc"
	"github.com/overwatchkr/overwatch-bot/overwatch/economy"
)

// ownerPermissions is granted to the creator of a managed voice channel so
// they can rename it and adjust its limit from the client UI as well.
const ownerPermissions = discord.PermissionManageChannels | discord.PermissionManageRoles

type Discord struct {
	client bot.Client
}

func New(client bot.Client) *Discord {
	return &Discord{client: client}
}

func statusCode(err error) int {
	var restErr rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

// classify wraps a REST failure so callers can tell permission problems from
// transient API trouble without knowing about HTTP.
func classify(op string, err error) error {
	kind := economy.ExternalTransient
	if statusCode(err) == http.StatusForbidden {
		kind = economy.ExternalPermission
	}
	return &economy.ExternalError{Kind: kind, Op: op, Err: err}
}

// RoleExists reports whether the role is present in the guild cache.
func (d *Discord) RoleExists(guildID, roleID snowflake.ID) bool {
	_, ok := d.client.Caches().Role(guildID, roleID)
	return ok
}

func (d *Discord) GrantRole(ctx context.Context, guildID, userID, roleID snowflake.ID) error {
	if err := d.client.Rest().AddMemberRole(guildID, userID, roleID, rest.WithCtx(ctx)); err != nil {
		return classify("grant role", err)
	}
	return nil
}

func (d *Discord) RevokeRole(ctx context.Context, guildID, userID, roleID snowflake.ID) error {
	if err := d.client.Rest().RemoveMemberRole(guildID, userID, roleID, rest.WithCtx(ctx)); err != nil {
		return classify("revoke role", err)
	}
	return nil
}

func (d *Discord) SetNickname(ctx context.Context, guildID, userID snowflake.ID, nickname string) error {
	_, err := d.client.Rest().UpdateMember(guildID, userID, discord.MemberUpdate{
		Nick: &nickname,
	}, rest.WithCtx(ctx))
	if err != nil {
		return classify("set nickname", err)
	}
	return nil
}

func (d *Discord) CategoryExists(guildID, categoryID snowflake.ID) bool {
	ch, ok := d.client.Caches().Channel(categoryID)
	return ok && ch.GuildID() == guildID && ch.Type() == discord.ChannelTypeGuildCategory
}

func (d *Discord) CategoryPosition(guildID, categoryID snowflake.ID) (int, bool) {
	ch, ok := d.client.Caches().Channel(categoryID)
	if !ok || ch.GuildID() != guildID {
		return 0, false
	}
	return ch.Position(), true
}

func (d *Discord) VoiceChannelsIn(guildID, categoryID snowflake.ID) []autovc.ChannelInfo {
	var out []autovc.ChannelInfo
	d.client.Caches().ChannelsForEach(func(ch discord.GuildChannel) {
		if ch.GuildID() != guildID || ch.Type() != discord.ChannelTypeGuildVoice {
			return
		}
		parentID := ch.ParentID()
		if parentID == nil || *parentID != categoryID {
			return
		}
		out = append(out, autovc.ChannelInfo{
			ID:       ch.ID(),
			Name:     ch.Name(),
			Position: ch.Position(),
		})
	})
	return out
}

func (d *Discord) NonBotOccupants(channelID snowflake.ID) (int, bool) {
	ch, ok := d.client.Caches().Channel(channelID)
	if !ok {
		return 0, false
	}
	audio, ok := ch.(discord.GuildAudioChannel)
	if !ok {
		return 0, false
	}

	count := 0
	for _, member := range d.client.Caches().AudioChannelMembers(audio) {
		if !member.User.Bot {
			count++
		}
	}
	return count, true
}

func (d *Discord) CreateVoiceChannel(ctx context.Context, req autovc.CreateChannelRequest) (snowflake.ID, error) {
	userLimit := req.UserLimit
	ch, err := d.client.Rest().CreateGuildChannel(req.GuildID, discord.GuildVoiceChannelCreate{
		Name:      req.Name,
		ParentID:  req.CategoryID,
		Position:  req.Position,
		UserLimit: userLimit,
		PermissionOverwrites: []discord.PermissionOverwrite{
			discord.MemberPermissionOverwrite{
				UserID: req.OwnerID,
				Allow:  ownerPermissions,
			},
		},
	}, rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to create guild channel: %w", err)
	}
	return ch.ID(), nil
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID snowflake.ID) error {
	err := d.client.Rest().DeleteChannel(channelID, rest.WithCtx(ctx))
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return autovc.ErrChannelNotFound
		}
		return err
	}
	return nil
}

func (d *Discord) MoveMember(ctx context.Context, guildID, userID, channelID snowflake.ID) error {
	_, err := d.client.Rest().UpdateMember(guildID, userID, discord.MemberUpdate{
		ChannelID: &channelID,
	}, rest.WithCtx(ctx))
	return err
}

func (d *Discord) RenameChannel(ctx context.Context, channelID snowflake.ID, name string) error {
	_, err := d.client.Rest().UpdateChannel(channelID, discord.GuildVoiceChannelUpdate{
		Name: &name,
	}, rest.WithCtx(ctx))
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return autovc.ErrChannelNotFound
		}
		return err
	}
	return nil
}

func (d *Discord) SetUserLimit(ctx context.Context, channelID snowflake.ID, limit int) error {
	_, err := d.client.Rest().UpdateChannel(channelID, discord.GuildVoiceChannelUpdate{
		UserLimit: &limit,
	}, rest.WithCtx(ctx))
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return autovc.ErrChannelNotFound
		}
		return err
	}
	return nil
}
