package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/economy"
	"github.com/overwatchkr/overwatch-bot/overwatch/economy/games"
	"github.com/overwatchkr/overwatch-bot/overwatch/utils"
)

// Cooldown tracker action keys. These are also what the user sees in the
// "on cooldown" reply, so they stay in Korean.
const (
	actionLabor  = "노동"
	actionLadder = "사다리"
	actionSlots  = "슬롯"
)

// rng backs all game draws. *rand.Rand is not safe for concurrent use, so
// every draw holds rngMu.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

var Labor = discord.SlashCommandCreate{
	Name:        "노동",
	Description: "💪 일해서 돈을 법니다",
}

func LaborHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if err := b.Cooldowns.Check(actionLabor, userID); err != nil {
			return cooldownMessage(e, err)
		}

		if _, err := b.UserRepository.GetOrCreate(ctx, userID, e.User().EffectiveName()); err != nil {
			return errorMessage(e, "유저 정보를 불러오지 못했습니다.")
		}

		rngMu.Lock()
		result := games.Labor(rng)
		rngMu.Unlock()

		balance, err := b.UserRepository.AdjustBalance(ctx, userID, result.Reward)
		if err != nil {
			return errorMessage(e, "보상 지급에 실패했습니다. 쿨타임은 소모되지 않았습니다.")
		}
		b.Cooldowns.Commit(actionLabor, userID, time.Duration(b.Cfg.Economy.LaborCooldownSeconds())*time.Second)

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "💪 노동",
				Description: fmt.Sprintf("**%s**(으)로 **%s**을(를) 벌었습니다!\n현재 잔고: **%s**",
					result.Title, utils.FormatMoney(result.Reward), utils.FormatMoney(balance)),
				Color:  utils.SuccessColor,
				Footer: nextPlayFooter(b, actionLabor, userID),
			}},
		})
	}
}

var Ladder = discord.SlashCommandCreate{
	Name:        "사다리",
	Description: "🪜 사다리 타기에 돈을 겁니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "금액",
			Description: "배팅 금액",
			Required:    true,
			MinValue:    intPtr(1),
		},
		discord.ApplicationCommandOptionString{
			Name:        "위치",
			Description: "사다리를 탈 위치",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "왼쪽", Value: "left"},
				{Name: "가운데", Value: "center"},
				{Name: "오른쪽", Value: "right"},
			},
		},
	},
}

func LadderHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		stake := int64(data.Int("금액"))
		picked, err := games.ParseLadderPosition(data.String("위치"))
		if err != nil {
			return errorMessage(e, "위치는 왼쪽, 가운데, 오른쪽 중 하나여야 합니다.")
		}

		userID := e.User().ID.String()
		if err := b.Cooldowns.Check(actionLadder, userID); err != nil {
			return cooldownMessage(e, err)
		}

		account, err := b.UserRepository.GetOrCreate(ctx, userID, e.User().EffectiveName())
		if err != nil {
			return errorMessage(e, "유저 정보를 불러오지 못했습니다.")
		}
		if account.Balance < stake {
			return errorMessage(e, fmt.Sprintf("잔고가 부족합니다. 현재 잔고: %s", utils.FormatMoney(account.Balance)))
		}

		rngMu.Lock()
		result := games.Ladder(rng, stake, picked)
		rngMu.Unlock()

		balance, err := b.UserRepository.AdjustBalance(ctx, userID, result.Net)
		if err != nil {
			return errorMessage(e, "정산에 실패했습니다. 쿨타임은 소모되지 않았습니다.")
		}
		b.Cooldowns.Commit(actionLadder, userID, time.Duration(b.Cfg.Economy.LadderCooldownSeconds())*time.Second)

		if result.Won {
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title: "🪜 사다리 — 성공!",
					Description: fmt.Sprintf("**%s**을(를) 골라 당첨! **%s**을(를) 땄습니다.\n현재 잔고: **%s**",
						result.Picked, utils.FormatMoney(result.Net), utils.FormatMoney(balance)),
					Color:  utils.SuccessColor,
					Footer: nextPlayFooter(b, actionLadder, userID),
				}},
			})
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "🪜 사다리 — 실패",
				Description: fmt.Sprintf("**%s**을(를) 골랐지만 당첨은 **%s**... **%s**을(를) 잃었습니다.\n현재 잔고: **%s**",
					result.Picked, result.Drawn, utils.FormatMoney(stake), utils.FormatMoney(balance)),
				Color:  utils.ErrorColor,
				Footer: nextPlayFooter(b, actionLadder, userID),
			}},
		})
	}
}

var Slots = discord.SlashCommandCreate{
	Name:        "슬롯",
	Description: "🎰 슬롯머신을 돌립니다",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "금액",
			Description: "배팅 금액",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

func SlotsHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		stake := int64(e.SlashCommandInteractionData().Int("금액"))

		userID := e.User().ID.String()
		if err := b.Cooldowns.Check(actionSlots, userID); err != nil {
			return cooldownMessage(e, err)
		}

		account, err := b.UserRepository.GetOrCreate(ctx, userID, e.User().EffectiveName())
		if err != nil {
			return errorMessage(e, "유저 정보를 불러오지 못했습니다.")
		}
		if account.Balance < stake {
			return errorMessage(e, fmt.Sprintf("잔고가 부족합니다. 현재 잔고: %s", utils.FormatMoney(account.Balance)))
		}

		rngMu.Lock()
		result := games.Slots(rng, stake)
		rngMu.Unlock()

		balance, err := b.UserRepository.AdjustBalance(ctx, userID, result.Net)
		if err != nil {
			return errorMessage(e, "정산에 실패했습니다. 쿨타임은 소모되지 않았습니다.")
		}
		b.Cooldowns.Commit(actionSlots, userID, time.Duration(b.Cfg.Economy.SlotsCooldownSeconds())*time.Second)

		reel := strings.Join(result.Reel[:], " | ")
		if result.Multiplier > 0 {
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title: "🎰 슬롯 — 당첨!",
					Description: fmt.Sprintf("[ %s ]\n\n**%d배** 당첨! **%s**을(를) 땄습니다.\n현재 잔고: **%s**",
						reel, result.Multiplier, utils.FormatMoney(result.Net), utils.FormatMoney(balance)),
					Color:  utils.SuccessColor,
					Footer: nextPlayFooter(b, actionSlots, userID),
				}},
			})
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "🎰 슬롯 — 꽝",
				Description: fmt.Sprintf("[ %s ]\n\n**%s**을(를) 잃었습니다.\n현재 잔고: **%s**",
					reel, utils.FormatMoney(stake), utils.FormatMoney(balance)),
				Color:  utils.ErrorColor,
				Footer: nextPlayFooter(b, actionSlots, userID),
			}},
		})
	}
}

// nextPlayFooter reads the freshly committed gate back from the tracker so
// the result embed tells the user when the game unlocks again.
func nextPlayFooter(b *overwatch.Bot, action, userID string) *discord.EmbedFooter {
	remaining := b.Cooldowns.Remaining(action, userID)
	return &discord.EmbedFooter{
		Text: fmt.Sprintf("다음 %s까지 %s", action, utils.FormatDuration(int64(remaining.Seconds()))),
	}
}

func cooldownMessage(e *handler.CommandEvent, err error) error {
	var cd *economy.OnCooldownError
	if !errors.As(err, &cd) {
		return errorMessage(e, "잠시 후 다시 시도해주세요.")
	}
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "⏳ 쿨타임",
			Description: fmt.Sprintf("`%s` 명령은 **%s** 후에 다시 사용할 수 있습니다.", cd.Action, utils.FormatDuration(int64(cd.Remaining.Seconds())+1)),
			Color:       utils.WarningColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}
