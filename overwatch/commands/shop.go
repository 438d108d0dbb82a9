package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/overwatchkr/overwatch-bot/overwatch/economy"
	"github.com/overwatchkr/overwatch-bot/overwatch/handlers"
	"github.com/overwatchkr/overwatch-bot/overwatch/utils"
)

// shopMenuValidity bounds how long a posted shop menu stays clickable. The
// select menu carries its issue time in the custom id; stale menus are
// rejected instead of selling at a price the buyer may no longer see.
const shopMenuValidity = 5 * time.Minute

const maxMenuOptions = 25

var Shop = discord.SlashCommandCreate{
	Name:        "상점",
	Description: "🛍️ 상점에서 아이템을 구매합니다",
}

type ShopHandler struct {
	bot *overwatch.Bot
}

func NewShopHandler(b *overwatch.Bot) *ShopHandler {
	return &ShopHandler{bot: b}
}

func (h *ShopHandler) Register(r handler.Router) {
	r.Command("/상점", handlers.WrapWithLogging("상점", h.HandleList))
	r.Component("/shop/select/{user_id}/{issued}", handlers.WrapComponentWithLogging("shop-select", h.HandleSelect))
	r.Modal("/shop/rename", h.HandleRenameSubmit)
}

func (h *ShopHandler) HandleList(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	items, err := h.bot.ShopRepository.GetAll(ctx)
	if err != nil {
		return errorMessage(e, "상점 목록을 불러오지 못했습니다.")
	}

	if len(items) == 0 {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🛍️ 상점",
				Description: "판매 중인 아이템이 없습니다.",
				Color:       utils.WarningColor,
			}},
		})
	}

	var description strings.Builder
	options := make([]discord.StringSelectMenuOption, 0, min(len(items), maxMenuOptions))
	for _, item := range items {
		emoji := item.Emoji
		if emoji == "" {
			emoji = typeEmoji(item.ItemType)
		}
		description.WriteString(fmt.Sprintf("%s **%s** — %s\n", emoji, item.Name, utils.FormatMoney(item.Price)))
		if item.Description != "" {
			description.WriteString(fmt.Sprintf("  └ %s\n", item.Description))
		}

		if len(options) < maxMenuOptions {
			options = append(options, discord.StringSelectMenuOption{
				Label:       item.Name,
				Value:       strconv.FormatInt(item.ID, 10),
				Description: utils.FormatMoney(item.Price),
			})
		}
	}

	customID := fmt.Sprintf("/shop/select/%s/%d", e.User().ID, time.Now().Unix())
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "🛍️ 상점",
			Description: description.String(),
			Color:       utils.InfoColor,
			Footer: &discord.EmbedFooter{
				Text: "아래 메뉴에서 구매할 아이템을 선택하세요",
			},
		}},
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewStringSelectMenu(customID, "구매할 아이템 선택", options...),
			),
		},
	})
}

func (h *ShopHandler) HandleSelect(e *handler.ComponentEvent) error {
	requester := e.Vars["user_id"]
	issuedUnix, err := strconv.ParseInt(e.Vars["issued"], 10, 64)
	if err != nil {
		return componentError(e, "잘못된 상점 메뉴입니다. `/상점`을 다시 실행해주세요.")
	}

	if e.User().ID.String() != requester {
		return componentError(e, "본인이 연 상점 메뉴에서만 구매할 수 있습니다.")
	}
	if time.Since(time.Unix(issuedUnix, 0)) > shopMenuValidity {
		return componentError(e, "상점 메뉴가 만료되었습니다. `/상점`을 다시 실행해주세요.")
	}

	data, ok := e.Data.(discord.StringSelectMenuInteractionData)
	if !ok || len(data.Values) == 0 {
		return componentError(e, "아이템을 선택해주세요.")
	}
	itemID, err := strconv.ParseInt(data.Values[0], 10, 64)
	if err != nil {
		return componentError(e, "잘못된 아이템입니다.")
	}

	guildID := e.GuildID()
	if guildID == nil {
		return componentError(e, "서버 안에서만 사용할 수 있습니다.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := h.bot.UserRepository.GetOrCreate(ctx, e.User().ID.String(), e.User().EffectiveName()); err != nil {
		return componentError(e, "유저 정보를 불러오지 못했습니다.")
	}

	receipt, err := h.bot.ShopCoordinator.Purchase(ctx, *guildID, e.User().ID, itemID)
	if err != nil {
		return componentError(e, purchaseErrorText(err))
	}

	if receipt.AwaitingInput {
		// The voucher price is already parked; collect the new nickname now.
		return e.Modal(discord.ModalCreate{
			CustomID: "/shop/rename",
			Title:    "닉네임 변경권",
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.TextInputComponent{
						CustomID:  "nickname",
						Style:     discord.TextInputStyleShort,
						Label:     "새 닉네임",
						Required:  true,
						MaxLength: 32,
					},
				),
			},
		})
	}

	description := fmt.Sprintf("**%s**을(를) 구매했습니다!\n남은 잔고: **%s**",
		receipt.Item.Name, utils.FormatMoney(receipt.NewBalance))
	if !receipt.ExpiresAt.IsZero() {
		description += fmt.Sprintf("\n역할 만료: <t:%d:R>", receipt.ExpiresAt.Unix())
	}

	return e.UpdateMessage(discord.MessageUpdate{
		Embeds: &[]discord.Embed{{
			Title:       "✅ 구매 완료",
			Description: description,
			Color:       utils.SuccessColor,
		}},
		Components: &[]discord.ContainerComponent{},
	})
}

func (h *ShopHandler) HandleRenameSubmit(e *handler.ModalEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nickname := strings.TrimSpace(e.Data.Text("nickname"))
	if nickname == "" {
		h.bot.ShopCoordinator.AbandonRename(ctx, e.User().ID)
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "❌ 닉네임 변경 취소",
				Description: "닉네임이 비어 있어 구매가 환불되었습니다.",
				Color:       utils.ErrorColor,
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}

	if err := h.bot.ShopCoordinator.CompleteRename(ctx, e.User().ID, nickname); err != nil {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "❌ 닉네임 변경 실패",
				Description: purchaseErrorText(err),
				Color:       utils.ErrorColor,
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "✅ 닉네임 변경 완료",
			Description: fmt.Sprintf("닉네임이 **%s**(으)로 변경되었습니다.", nickname),
			Color:       utils.SuccessColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

func typeEmoji(itemType string) string {
	switch itemType {
	case models.ItemTypeRole:
		return "🎭"
	case models.ItemTypeNickname:
		return "✏️"
	default:
		return "📦"
	}
}

func purchaseErrorText(err error) string {
	var external *economy.ExternalError
	switch {
	case errors.Is(err, economy.ErrInsufficientFunds):
		return "잔고가 부족합니다."
	case errors.Is(err, economy.ErrItemNotFound):
		return "존재하지 않는 아이템입니다."
	case errors.Is(err, economy.ErrRoleUnavailable):
		return "해당 역할이 더 이상 존재하지 않습니다. 금액은 환불되었습니다."
	case errors.Is(err, economy.ErrRoleActive):
		return "이미 사용 중인 기간제 역할입니다. 만료 후 다시 구매할 수 있습니다."
	case errors.As(err, &external):
		if external.Kind == economy.ExternalPermission {
			return "봇 권한이 부족하여 처리하지 못했습니다. 금액은 환불되었습니다."
		}
		return "일시적인 오류로 처리하지 못했습니다. 금액은 환불되었습니다."
	default:
		return "구매 처리 중 오류가 발생했습니다."
	}
}

func componentError(e *handler.ComponentEvent, message string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "❌ 오류",
			Description: message,
			Color:       utils.ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}
