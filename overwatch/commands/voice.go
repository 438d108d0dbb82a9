package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/autovc"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/overwatchkr/overwatch-bot/overwatch/utils"
)

var AutoVCAdmin = discord.SlashCommandCreate{
	Name:        "자동통화방",
	Description: "🔧 자동 통화방 생성기를 관리합니다 (관리자)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "설정",
			Description: "생성기 채널을 등록하거나 교체합니다",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:        "생성기",
					Description: "입장 시 새 통화방을 만드는 트리거 채널",
					Required:    true,
				},
				discord.ApplicationCommandOptionChannel{
					Name:        "카테고리",
					Description: "새 통화방이 생성될 카테고리",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "이름",
					Description: "생성될 통화방의 기본 이름",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "삭제",
			Description: "생성기 설정을 제거합니다",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:        "생성기",
					Description: "제거할 트리거 채널",
					Required:    true,
				},
			},
		},
	},
}

var VoiceChannel = discord.SlashCommandCreate{
	Name:        "통화방",
	Description: "🎙️ 내 통화방을 관리합니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "이름",
			Description: "통화방 이름을 변경합니다",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "이름",
					Description: "새 이름",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "인원",
			Description: "통화방 인원 제한을 변경합니다",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "인원",
					Description: "최대 인원 (0은 무제한)",
					Required:    true,
					MinValue:    intPtr(0),
					MaxValue:    intPtr(99),
				},
			},
		},
	},
}

type VoiceHandler struct {
	bot *overwatch.Bot
}

func NewVoiceHandler(b *overwatch.Bot) *VoiceHandler {
	return &VoiceHandler{bot: b}
}

func (h *VoiceHandler) HandleConfigure(e *handler.CommandEvent) error {
	if !isAdmin(e) {
		return errorMessage(e, "관리자만 사용할 수 있는 명령입니다.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := e.SlashCommandInteractionData()
	generator := data.Channel("생성기")
	category := data.Channel("카테고리")
	baseName := strings.TrimSpace(data.String("이름"))

	if generator.Type != discord.ChannelTypeGuildVoice {
		return errorMessage(e, "생성기는 음성 채널이어야 합니다.")
	}
	if category.Type != discord.ChannelTypeGuildCategory {
		return errorMessage(e, "카테고리 채널을 선택해주세요.")
	}
	if baseName == "" {
		return errorMessage(e, "기본 이름을 입력해주세요.")
	}

	guildID := e.GuildID()
	if guildID == nil {
		return errorMessage(e, "서버 안에서만 사용할 수 있습니다.")
	}

	err := h.bot.VoiceManager.ConfigureGenerator(ctx, &models.AutoVCGenerator{
		GeneratorChannelID: int64(generator.ID),
		CategoryID:         int64(category.ID),
		BaseName:           baseName,
		GuildID:            int64(*guildID),
	})
	if err != nil {
		return errorMessage(e, "생성기 등록에 실패했습니다.")
	}

	return adminConfirm(e, fmt.Sprintf("<#%s> 입장 시 **%s N** 통화방이 생성됩니다.", generator.ID, baseName))
}

func (h *VoiceHandler) HandleRemoveGenerator(e *handler.CommandEvent) error {
	if !isAdmin(e) {
		return errorMessage(e, "관리자만 사용할 수 있는 명령입니다.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	generator := e.SlashCommandInteractionData().Channel("생성기")
	if err := h.bot.VoiceManager.RemoveGenerator(ctx, generator.ID); err != nil {
		return errorMessage(e, "생성기 제거에 실패했습니다.")
	}
	return adminConfirm(e, fmt.Sprintf("<#%s> 생성기 설정이 제거되었습니다.", generator.ID))
}

// currentManagedChannel resolves the caller's current voice channel, which
// must be one this bot manages.
func (h *VoiceHandler) currentManagedChannel(e *handler.CommandEvent) (snowflake.ID, bool) {
	guildID := e.GuildID()
	if guildID == nil {
		return 0, false
	}
	state, ok := h.bot.Client.Caches().VoiceState(*guildID, e.User().ID)
	if !ok || state.ChannelID == nil {
		return 0, false
	}
	if !h.bot.VoiceManager.IsManaged(*state.ChannelID) {
		return 0, false
	}
	return *state.ChannelID, true
}

func (h *VoiceHandler) HandleRename(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channelID, ok := h.currentManagedChannel(e)
	if !ok {
		return errorMessage(e, "자동 생성된 통화방에 입장한 상태에서만 사용할 수 있습니다.")
	}

	name := strings.TrimSpace(e.SlashCommandInteractionData().String("이름"))
	if name == "" {
		return errorMessage(e, "이름을 입력해주세요.")
	}

	if err := h.bot.VoiceManager.RenameOwned(ctx, channelID, e.User().ID, name); err != nil {
		if errors.Is(err, autovc.ErrNotOwner) {
			return errorMessage(e, "통화방을 만든 사람만 변경할 수 있습니다.")
		}
		return errorMessage(e, "이름 변경에 실패했습니다.")
	}

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "🎙️ 통화방",
			Description: fmt.Sprintf("통화방 이름이 **%s**(으)로 변경되었습니다.", name),
			Color:       utils.SuccessColor,
		}},
	})
}

func (h *VoiceHandler) HandleSetLimit(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channelID, ok := h.currentManagedChannel(e)
	if !ok {
		return errorMessage(e, "자동 생성된 통화방에 입장한 상태에서만 사용할 수 있습니다.")
	}

	limit := e.SlashCommandInteractionData().Int("인원")
	if err := h.bot.VoiceManager.SetLimitOwned(ctx, channelID, e.User().ID, limit); err != nil {
		if errors.Is(err, autovc.ErrNotOwner) {
			return errorMessage(e, "통화방을 만든 사람만 변경할 수 있습니다.")
		}
		return errorMessage(e, "인원 제한 변경에 실패했습니다.")
	}

	limitText := "무제한"
	if limit > 0 {
		limitText = fmt.Sprintf("%d명", limit)
	}
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "🎙️ 통화방",
			Description: fmt.Sprintf("인원 제한이 **%s**(으)로 변경되었습니다.", limitText),
			Color:       utils.SuccessColor,
		}},
	})
}
