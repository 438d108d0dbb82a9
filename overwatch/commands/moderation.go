package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/disgo/rest"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/overwatchkr/overwatch-bot/overwatch/utils"
)

// maxRecentCases bounds the punishment history shown in /유저정보.
const maxRecentCases = 5

var Warn = discord.SlashCommandCreate{
	Name:        "경고",
	Description: "⚠️ 유저에게 경고를 부여합니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "대상",
			Description: "경고를 받을 유저",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "횟수",
			Description: "부여할 경고 횟수",
			Required:    true,
			MinValue:    intPtr(1),
		},
		discord.ApplicationCommandOptionString{
			Name:        "사유",
			Description: "경고 사유",
			Required:    true,
		},
	},
}

var Ban = discord.SlashCommandCreate{
	Name:        "차단",
	Description: "🔨 유저를 서버에서 차단합니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "대상",
			Description: "차단할 유저",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "사유",
			Description: "차단 사유",
			Required:    true,
		},
	},
}

var UserInfo = discord.SlashCommandCreate{
	Name:        "유저정보",
	Description: "🔍 유저의 상세 정보와 처벌 내역을 조회합니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "대상",
			Description: "조회할 유저",
			Required:    true,
		},
	},
}

func WarnHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !hasPermission(e, discord.PermissionManageMessages) {
			return errorMessage(e, "메시지 관리 권한이 필요한 명령입니다.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		target := data.User("대상")
		count := data.Int("횟수")
		reason := data.String("사유")

		if target.Bot {
			return errorMessage(e, "봇에게는 경고를 부여할 수 없습니다.")
		}

		if _, err := b.UserRepository.GetOrCreate(ctx, target.ID.String(), target.EffectiveName()); err != nil {
			return errorMessage(e, "유저 정보를 불러오지 못했습니다.")
		}
		caseID, err := b.ModerationRepository.AddWarning(ctx, target.ID.String(), e.User().ID.String(), reason, count)
		if err != nil {
			return errorMessage(e, "경고 기록에 실패했습니다.")
		}

		sendModLog(ctx, b, e, discord.Embed{
			Title: "⚠️ 경고 처분",
			Color: utils.WarningColor,
			Fields: []discord.EmbedField{
				{Name: "대상", Value: target.Mention()},
				{Name: "관리자", Value: e.User().Mention()},
				{Name: "횟수", Value: fmt.Sprintf("%d회", count)},
				{Name: "사유", Value: reason},
			},
			Footer: &discord.EmbedFooter{Text: fmt.Sprintf("사건 ID: %d", caseID)},
		})

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "⚠️ 경고 부여",
				Description: fmt.Sprintf("%s에게 경고 **%d회**를 부여했습니다.\n사유: %s", target.Mention(), count, reason),
				Color:       utils.WarningColor,
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

func BanHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !hasPermission(e, discord.PermissionBanMembers) {
			return errorMessage(e, "차단 권한이 필요한 명령입니다.")
		}
		guildID := e.GuildID()
		if guildID == nil {
			return errorMessage(e, "서버 안에서만 사용할 수 있습니다.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		target := data.User("대상")
		reason := data.String("사유")

		if target.ID == e.User().ID {
			return errorMessage(e, "자기 자신은 차단할 수 없습니다.")
		}

		if _, err := b.UserRepository.GetOrCreate(ctx, target.ID.String(), target.EffectiveName()); err != nil {
			return errorMessage(e, "유저 정보를 불러오지 못했습니다.")
		}
		caseID, err := b.ModerationRepository.AddBan(ctx, target.ID.String(), e.User().ID.String(), reason)
		if err != nil {
			return errorMessage(e, "차단 기록에 실패했습니다.")
		}

		if err := e.Client().Rest().AddBan(*guildID, target.ID, 0, rest.WithCtx(ctx)); err != nil {
			return errorMessage(e, "차단 실행에 실패했습니다. 봇 권한과 역할 순서를 확인해주세요.")
		}

		sendModLog(ctx, b, e, discord.Embed{
			Title: "🔨 차단 처분",
			Color: utils.ErrorColor,
			Fields: []discord.EmbedField{
				{Name: "대상", Value: fmt.Sprintf("%s (%s)", target.Mention(), target.ID)},
				{Name: "관리자", Value: e.User().Mention()},
				{Name: "사유", Value: reason},
			},
			Footer: &discord.EmbedFooter{Text: fmt.Sprintf("사건 ID: %d", caseID)},
		})

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🔨 차단 완료",
				Description: fmt.Sprintf("%s님을 차단했습니다.\n사유: %s", target.Mention(), reason),
				Color:       utils.ErrorColor,
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

func UserInfoHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !hasPermission(e, discord.PermissionManageMessages) {
			return errorMessage(e, "메시지 관리 권한이 필요한 명령입니다.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		target := data.User("대상")

		if _, err := b.UserRepository.GetOrCreate(ctx, target.ID.String(), target.EffectiveName()); err != nil {
			return errorMessage(e, "유저 정보를 불러오지 못했습니다.")
		}
		cases, err := b.ModerationRepository.CasesForUser(ctx, target.ID.String())
		if err != nil {
			return errorMessage(e, "처벌 내역을 불러오지 못했습니다.")
		}

		fields := []discord.EmbedField{
			{Name: "닉네임", Value: target.Mention()},
			{Name: "고유번호 (ID)", Value: target.ID.String()},
			{Name: "디스코드 가입일", Value: target.ID.Time().Format("2006-01-02 15:04:05")},
		}
		if member, ok := data.OptMember("대상"); ok {
			fields = append(fields, discord.EmbedField{
				Name:  "서버 가입일",
				Value: member.JoinedAt.Format("2006-01-02 15:04:05"),
			})
		}

		summary, recent := summarizeCases(cases)
		if summary == "" {
			fields = append(fields, discord.EmbedField{Name: "처벌 내역", Value: "처벌 기록이 없습니다."})
		} else {
			fields = append(fields,
				discord.EmbedField{Name: "처벌 요약", Value: summary},
				discord.EmbedField{Name: fmt.Sprintf("최근 처벌 내역 (최대 %d개)", maxRecentCases), Value: recent},
			)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:     fmt.Sprintf("%s님의 정보", target.EffectiveName()),
				Color:     utils.InfoColor,
				Thumbnail: &discord.EmbedResource{URL: target.EffectiveAvatarURL()},
				Fields:    fields,
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

// summarizeCases folds a user's case history into the totals line and the
// recent-history block rendered by /유저정보.
func summarizeCases(cases []*models.ModerationCase) (summary, recent string) {
	if len(cases) == 0 {
		return "", ""
	}

	totalWarnings := 0
	banCount := 0
	for _, c := range cases {
		switch c.Action {
		case models.ModerationActionWarn:
			totalWarnings += c.Count
		case models.ModerationActionBan:
			banCount++
		}
	}

	var lines strings.Builder
	for i, c := range cases {
		if i == maxRecentCases {
			break
		}
		reason := c.Reason
		if reason == "" {
			reason = "사유 없음"
		}
		switch c.Action {
		case models.ModerationActionWarn:
			lines.WriteString(fmt.Sprintf("- **경고 %d회**: %s (ID: %d)\n", c.Count, reason, c.ID))
		default:
			lines.WriteString(fmt.Sprintf("- **차단**: %s (ID: %d)\n", reason, c.ID))
		}
	}

	return fmt.Sprintf("경고 %d회, 차단 %d회", totalWarnings, banCount),
		strings.TrimRight(lines.String(), "\n")
}

// sendModLog mirrors a disciplinary action into the configured log channel.
// A missing or broken channel never fails the command itself.
func sendModLog(ctx context.Context, b *overwatch.Bot, e *handler.CommandEvent, embed discord.Embed) {
	channelID := b.Cfg.Bot.ModLogChannel
	if channelID == 0 {
		return
	}
	_, err := e.Client().Rest().CreateMessage(channelID, discord.MessageCreate{
		Embeds: []discord.Embed{embed},
	}, rest.WithCtx(ctx))
	if err != nil {
		slog.Warn("Failed to post mod-log entry",
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}

func hasPermission(e *handler.CommandEvent, perm discord.Permissions) bool {
	member := e.Member()
	return member != nil && member.Permissions.Has(perm)
}
