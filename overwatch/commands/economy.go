package commands

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/utils"
)

var Balance = discord.SlashCommandCreate{
	Name:        "잔고",
	Description: "💰 현재 잔고를 확인합니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "유저",
			Description: "다른 유저의 잔고를 확인합니다",
		},
	},
}

func BalanceHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		target := e.User()
		if u, ok := e.SlashCommandInteractionData().OptUser("유저"); ok {
			target = u
		}

		account, err := b.UserRepository.GetOrCreate(ctx, target.ID.String(), target.EffectiveName())
		if err != nil {
			return errorMessage(e, "잔고를 불러오지 못했습니다. 잠시 후 다시 시도해주세요.")
		}

		now := time.Now()
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "💰 잔고",
				Description: fmt.Sprintf("**%s**님의 잔고는 **%s**입니다.", account.DisplayName, utils.FormatMoney(account.Balance)),
				Color:       utils.SuccessColor,
				Timestamp:   &now,
			}},
		})
	}
}

var Inventory = discord.SlashCommandCreate{
	Name:        "인벤토리",
	Description: "🎒 보유한 아이템을 확인합니다",
}

func InventoryHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		lines, err := b.ShopRepository.GetUserInventory(ctx, e.User().ID.String())
		if err != nil {
			return errorMessage(e, "인벤토리를 불러오지 못했습니다.")
		}

		if len(lines) == 0 {
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title:       "🎒 인벤토리",
					Description: "보유한 아이템이 없습니다. `/상점`에서 아이템을 구매해보세요!",
					Color:       utils.InfoColor,
				}},
			})
		}

		var description strings.Builder
		for _, line := range lines {
			emoji := line.Emoji
			if emoji == "" {
				emoji = "📦"
			}
			description.WriteString(fmt.Sprintf("%s **%s** × %d\n", emoji, line.Name, line.Count))
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🎒 인벤토리",
				Description: description.String(),
				Color:       utils.SuccessColor,
			}},
		})
	}
}

var Transfer = discord.SlashCommandCreate{
	Name:        "송금",
	Description: "💸 다른 유저에게 돈을 보냅니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "받는사람",
			Description: "돈을 받을 유저",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "금액",
			Description: "보낼 금액",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

func TransferHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		recipient := data.User("받는사람")
		amount := int64(data.Int("금액"))

		if recipient.Bot {
			return errorMessage(e, "봇에게는 송금할 수 없습니다.")
		}
		if recipient.ID == e.User().ID {
			return errorMessage(e, "자기 자신에게는 송금할 수 없습니다.")
		}

		sender, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String(), e.User().EffectiveName())
		if err != nil {
			return errorMessage(e, "잔고를 확인하지 못했습니다.")
		}
		if sender.Balance < amount {
			return errorMessage(e, fmt.Sprintf("잔고가 부족합니다. 현재 잔고: %s", utils.FormatMoney(sender.Balance)))
		}

		if _, err := b.UserRepository.GetOrCreate(ctx, recipient.ID.String(), recipient.EffectiveName()); err != nil {
			return errorMessage(e, "받는 유저 정보를 불러오지 못했습니다.")
		}

		newBalance, err := b.UserRepository.AdjustBalance(ctx, e.User().ID.String(), -amount)
		if err != nil {
			return errorMessage(e, "송금에 실패했습니다.")
		}
		if _, err := b.UserRepository.AdjustBalance(ctx, recipient.ID.String(), amount); err != nil {
			// Give the debit back; the recipient was never credited.
			if _, refundErr := b.UserRepository.AdjustBalance(ctx, e.User().ID.String(), amount); refundErr != nil {
				return errorMessage(e, "송금 처리 중 오류가 발생했습니다. 관리자에게 문의해주세요.")
			}
			return errorMessage(e, "송금에 실패했습니다. 금액은 환불되었습니다.")
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "💸 송금 완료",
				Description: fmt.Sprintf("<@%s>님에게 **%s**을(를) 보냈습니다.\n남은 잔고: **%s**",
					recipient.ID, utils.FormatMoney(amount), utils.FormatMoney(newBalance)),
				Color: utils.SuccessColor,
			}},
		})
	}
}

var Ranking = discord.SlashCommandCreate{
	Name:        "랭킹",
	Description: "🏆 잔고 순위를 확인합니다",
}

const rankingPageSize = 10

func RankingHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		users, err := b.UserRepository.Leaderboard(ctx, 100)
		if err != nil {
			return errorMessage(e, "랭킹을 불러오지 못했습니다.")
		}
		if len(users) == 0 {
			return errorMessage(e, "아직 등록된 유저가 없습니다.")
		}

		totalPages := int(math.Ceil(float64(len(users)) / float64(rankingPageSize)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * rankingPageSize
				end := min(start+rankingPageSize, len(users))

				var description strings.Builder
				for i, user := range users[start:end] {
					rank := start + i + 1
					medal := fmt.Sprintf("%d.", rank)
					switch rank {
					case 1:
						medal = "🥇"
					case 2:
						medal = "🥈"
					case 3:
						medal = "🥉"
					}
					description.WriteString(fmt.Sprintf("%s **%s** — %s\n",
						medal, user.DisplayName, utils.FormatMoney(user.Balance)))
				}

				embed.
					SetTitle("🏆 잔고 랭킹").
					SetDescription(description.String()).
					SetColor(utils.InfoColor).
					SetFooter(fmt.Sprintf("페이지 %d/%d", page+1, totalPages), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

var Activity = discord.SlashCommandCreate{
	Name:        "활동량",
	Description: "📊 최근 활동량을 확인합니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "기간",
			Description: "조회할 기간(일), 기본 7일",
			MinValue:    intPtr(1),
			MaxValue:    intPtr(90),
		},
	},
}

func ActivityHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		days := 7
		if v, ok := e.SlashCommandInteractionData().OptInt("기간"); ok {
			days = v
		}

		to := time.Now()
		from := to.AddDate(0, 0, -(days - 1))

		stats, err := b.UserRepository.ActivityStats(ctx, e.User().ID.String(),
			from.Format("2006-01-02"), to.Format("2006-01-02"))
		if err != nil {
			return errorMessage(e, "활동량을 불러오지 못했습니다.")
		}

		hours := stats.TotalVoiceSeconds / 3600
		minutes := (stats.TotalVoiceSeconds % 3600) / 60

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "📊 활동량",
				Description: fmt.Sprintf("최근 **%d일** 동안의 활동입니다.\n\n💬 메시지: **%d개**\n🎙️ 통화: **%d시간 %d분**",
					days, stats.TotalMessages, hours, minutes),
				Color: utils.InfoColor,
			}},
		})
	}
}

func errorMessage(e *handler.CommandEvent, message string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "❌ 오류",
			Description: message,
			Color:       utils.ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}
