package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/utils"
)

var Birthday = discord.SlashCommandCreate{
	Name:        "생일등록",
	Description: "🎂 생일을 등록합니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "월",
			Description: "생일 월",
			Required:    true,
			MinValue:    intPtr(1),
			MaxValue:    intPtr(12),
		},
		discord.ApplicationCommandOptionInt{
			Name:        "일",
			Description: "생일 일",
			Required:    true,
			MinValue:    intPtr(1),
			MaxValue:    intPtr(31),
		},
	},
}

func BirthdayHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		month := data.Int("월")
		day := data.Int("일")

		// Validate against a leap year so 2/29 stays registrable.
		if _, err := time.Parse("2006-01-02", fmt.Sprintf("2024-%02d-%02d", month, day)); err != nil {
			return errorMessage(e, "존재하지 않는 날짜입니다.")
		}

		if _, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String(), e.User().EffectiveName()); err != nil {
			return errorMessage(e, "유저 정보를 불러오지 못했습니다.")
		}

		monthDay := fmt.Sprintf("%02d-%02d", month, day)
		if err := b.UserRepository.SetBirthday(ctx, e.User().ID.String(), monthDay); err != nil {
			return errorMessage(e, "생일 등록에 실패했습니다.")
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🎂 생일 등록 완료",
				Description: fmt.Sprintf("생일이 **%d월 %d일**로 등록되었습니다.", month, day),
				Color:       utils.SuccessColor,
			}},
		})
	}
}
