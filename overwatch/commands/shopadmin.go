package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/overwatchkr/overwatch-bot/overwatch/handlers"
	"github.com/overwatchkr/overwatch-bot/overwatch/utils"
)

var ShopAdmin = discord.SlashCommandCreate{
	Name:        "상점관리",
	Description: "🔧 상점 아이템을 관리합니다 (관리자)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "아이템추가",
			Description: "일반 아이템을 추가합니다",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "이름",
					Description: "아이템 이름",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "가격",
					Description: "판매 가격",
					Required:    true,
					MinValue:    intPtr(1),
				},
				discord.ApplicationCommandOptionString{
					Name:        "이모지",
					Description: "목록에 표시할 이모지",
				},
				discord.ApplicationCommandOptionString{
					Name:        "설명",
					Description: "아이템 설명",
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "역할추가",
			Description: "역할 아이템을 추가합니다",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "이름",
					Description: "아이템 이름",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "가격",
					Description: "판매 가격",
					Required:    true,
					MinValue:    intPtr(1),
				},
				discord.ApplicationCommandOptionRole{
					Name:        "역할",
					Description: "구매 시 지급할 역할",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "기간",
					Description: "역할 유지 기간(일), 비우면 영구",
					MinValue:    intPtr(1),
					MaxValue:    intPtr(365),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "닉네임권추가",
			Description: "닉네임 변경권을 추가합니다",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "이름",
					Description: "아이템 이름",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "가격",
					Description: "판매 가격",
					Required:    true,
					MinValue:    intPtr(1),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "삭제",
			Description: "아이템을 판매 목록에서 제거합니다",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "이름",
					Description:  "제거할 아이템 이름",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
	},
}

type ShopAdminHandler struct {
	bot *overwatch.Bot
}

func NewShopAdminHandler(b *overwatch.Bot) *ShopAdminHandler {
	return &ShopAdminHandler{bot: b}
}

func (h *ShopAdminHandler) Register(r handler.Router) {
	r.Route("/상점관리", func(r handler.Router) {
		r.Command("/아이템추가", handlers.WrapWithLogging("상점관리-아이템추가", h.HandleAddItem))
		r.Command("/역할추가", handlers.WrapWithLogging("상점관리-역할추가", h.HandleAddRole))
		r.Command("/닉네임권추가", handlers.WrapWithLogging("상점관리-닉네임권추가", h.HandleAddNickname))
		r.Command("/삭제", handlers.WrapWithLogging("상점관리-삭제", h.HandleRemove))
		r.Autocomplete("/삭제", h.HandleRemoveAutocomplete)
	})
}

func (h *ShopAdminHandler) HandleAddItem(e *handler.CommandEvent) error {
	if !isAdmin(e) {
		return errorMessage(e, "관리자만 사용할 수 있는 명령입니다.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := e.SlashCommandInteractionData()
	item := &models.ShopItem{
		ItemType:    models.ItemTypeSimple,
		Name:        strings.TrimSpace(data.String("이름")),
		Price:       int64(data.Int("가격")),
		Emoji:       data.String("이모지"),
		Description: data.String("설명"),
	}

	if err := h.bot.ShopRepository.AddItem(ctx, item); err != nil {
		return errorMessage(e, "아이템 추가에 실패했습니다.")
	}
	return adminConfirm(e, fmt.Sprintf("아이템 **%s**이(가) %s에 등록되었습니다.", item.Name, utils.FormatMoney(item.Price)))
}

func (h *ShopAdminHandler) HandleAddRole(e *handler.CommandEvent) error {
	if !isAdmin(e) {
		return errorMessage(e, "관리자만 사용할 수 있는 명령입니다.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := e.SlashCommandInteractionData()
	role := data.Role("역할")

	item := &models.ShopItem{
		ItemType: models.ItemTypeRole,
		Name:     strings.TrimSpace(data.String("이름")),
		Price:    int64(data.Int("가격")),
		RoleID:   int64(role.ID),
	}
	if days, ok := data.OptInt("기간"); ok {
		item.DurationDays = days
	}

	if err := h.bot.ShopRepository.AddItem(ctx, item); err != nil {
		return errorMessage(e, "역할 아이템 추가에 실패했습니다.")
	}

	duration := "영구"
	if item.DurationDays > 0 {
		duration = fmt.Sprintf("%d일", item.DurationDays)
	}
	return adminConfirm(e, fmt.Sprintf("역할 아이템 **%s**이(가) 등록되었습니다. (%s, %s)",
		item.Name, utils.FormatMoney(item.Price), duration))
}

func (h *ShopAdminHandler) HandleAddNickname(e *handler.CommandEvent) error {
	if !isAdmin(e) {
		return errorMessage(e, "관리자만 사용할 수 있는 명령입니다.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := e.SlashCommandInteractionData()
	item := &models.ShopItem{
		ItemType: models.ItemTypeNickname,
		Name:     strings.TrimSpace(data.String("이름")),
		Price:    int64(data.Int("가격")),
	}

	if err := h.bot.ShopRepository.AddItem(ctx, item); err != nil {
		return errorMessage(e, "닉네임 변경권 추가에 실패했습니다.")
	}
	return adminConfirm(e, fmt.Sprintf("닉네임 변경권 **%s**이(가) %s에 등록되었습니다.", item.Name, utils.FormatMoney(item.Price)))
}

func (h *ShopAdminHandler) HandleRemove(e *handler.CommandEvent) error {
	if !isAdmin(e) {
		return errorMessage(e, "관리자만 사용할 수 있는 명령입니다.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := strings.TrimSpace(e.SlashCommandInteractionData().String("이름"))
	removed, err := h.bot.ShopRepository.RemoveItemByName(ctx, name)
	if err != nil {
		return errorMessage(e, "아이템 제거에 실패했습니다.")
	}
	if !removed {
		return errorMessage(e, fmt.Sprintf("**%s** 이름의 아이템을 찾지 못했습니다.", name))
	}
	return adminConfirm(e, fmt.Sprintf("아이템 **%s**이(가) 판매 목록에서 제거되었습니다.", name))
}

// HandleRemoveAutocomplete fuzzy-matches the typed prefix against the item
// catalog.
func (h *ShopAdminHandler) HandleRemoveAutocomplete(e *handler.AutocompleteEvent) error {
	focused := e.Data.Focused()
	if focused.Name != "이름" {
		return nil
	}

	var input string
	if focused.Value != nil {
		if err := json.Unmarshal(focused.Value, &input); err != nil {
			return e.AutocompleteResult(nil)
		}
	}
	input = strings.TrimSpace(input)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	items, err := h.bot.ShopRepository.GetAll(ctx)
	if err != nil {
		return e.AutocompleteResult(nil)
	}

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}

	var ranked []string
	if input == "" {
		ranked = names
	} else {
		for _, match := range fuzzy.Find(input, names) {
			ranked = append(ranked, match.Str)
		}
	}

	choices := make([]discord.AutocompleteChoice, 0, min(len(ranked), maxMenuOptions))
	for _, name := range ranked {
		if len(choices) == maxMenuOptions {
			break
		}
		choices = append(choices, discord.AutocompleteChoiceString{Name: name, Value: name})
	}
	return e.AutocompleteResult(choices)
}

func isAdmin(e *handler.CommandEvent) bool {
	member := e.Member()
	return member != nil && member.Permissions.Has(discord.PermissionAdministrator)
}

func adminConfirm(e *handler.CommandEvent, message string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "✅ 완료",
			Description: message,
			Color:       utils.SuccessColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}
