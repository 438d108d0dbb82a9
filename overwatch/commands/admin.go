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

var Grant = discord.SlashCommandCreate{
	Name:        "지급",
	Description: "🔧 유저에게 돈을 지급하거나 회수합니다 (관리자)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "유저",
			Description: "대상 유저",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "금액",
			Description: "지급할 금액 (음수면 회수, 잔고가 음수가 될 수 있습니다)",
			Required:    true,
		},
	},
}

func GrantHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !isAdmin(e) {
			return errorMessage(e, "관리자만 사용할 수 있는 명령입니다.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		target := data.User("유저")
		amount := int64(data.Int("금액"))

		if amount == 0 {
			return errorMessage(e, "0원은 지급할 수 없습니다.")
		}

		if _, err := b.UserRepository.GetOrCreate(ctx, target.ID.String(), target.EffectiveName()); err != nil {
			return errorMessage(e, "대상 유저 정보를 불러오지 못했습니다.")
		}

		balance, err := b.UserRepository.AdjustBalance(ctx, target.ID.String(), amount)
		if err != nil {
			return errorMessage(e, "지급에 실패했습니다.")
		}

		verb := "지급"
		if amount < 0 {
			verb = "회수"
		}
		return adminConfirm(e, fmt.Sprintf("<@%s>님에게 **%s** %s 완료. 현재 잔고: **%s**",
			target.ID, utils.FormatMoney(amount), verb, utils.FormatMoney(balance)))
	}
}

var ResetBalances = discord.SlashCommandCreate{
	Name:        "잔고초기화",
	Description: "🔧 모든 유저의 잔고를 0으로 초기화합니다 (관리자)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "확인",
			Description: "정말 초기화하려면 '초기화'를 입력하세요",
			Required:    true,
		},
	},
}

func ResetBalancesHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !isAdmin(e) {
			return errorMessage(e, "관리자만 사용할 수 있는 명령입니다.")
		}

		if e.SlashCommandInteractionData().String("확인") != "초기화" {
			return errorMessage(e, "확인 문구가 일치하지 않아 취소되었습니다.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := b.UserRepository.ResetAllBalances(ctx); err != nil {
			return errorMessage(e, "잔고 초기화에 실패했습니다.")
		}
		return adminConfirm(e, "모든 유저의 잔고가 0으로 초기화되었습니다.")
	}
}
