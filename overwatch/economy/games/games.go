// Package games implements the weighted-outcome math behind the gated
// gambling commands. Every function here is pure: it consumes a *rand.Rand
// and a stake and produces a tier, a net balance delta and the strings the
// command layer renders. Balance mutation is the caller's job.
package games

import (
	"fmt"
	"math/rand"
)

// band is one segment of the [0,100) partition. Upper bounds are cumulative
// and exclusive; the bands must cover [0,100) without gaps or overlaps.
type band struct {
	upper float64
	tier  int
}

func pickBand(bands []band, roll float64) int {
	for _, b := range bands {
		if roll < b.upper {
			return b.tier
		}
	}
	// roll is uniform in [0,100) and the last band ends at 100, so this is
	// unreachable; returning the top tier keeps the function total.
	return bands[len(bands)-1].tier
}

// --- Labor ---

// laborBands maps a single roll to seven reward ranges. No stake, no loss.
var laborBands = []band{
	{50, 0},
	{80, 1},
	{93, 2},
	{98, 3},
	{99.5, 4},
	{99.9, 5},
	{100, 6},
}

// laborRewards are the inclusive [min,max] reward ranges per tier.
var laborRewards = [7][2]int64{
	{0, 10},
	{10, 50},
	{50, 100},
	{100, 300},
	{300, 600},
	{600, 1000},
	{1000, 10000},
}

var laborTitles = [7]string{
	"폐지 줍기",
	"전단지 돌리기",
	"편의점 아르바이트",
	"공사장 일용직",
	"대리운전",
	"보물 발견",
	"로또 당첨",
}

// LaborResult is the outcome of one labor roll.
type LaborResult struct {
	Tier   int
	Reward int64
	Title  string
}

// Labor draws one reward tier and a uniform reward within the tier's range.
func Labor(r *rand.Rand) LaborResult {
	tier := pickBand(laborBands, r.Float64()*100)
	lo, hi := laborRewards[tier][0], laborRewards[tier][1]
	return LaborResult{
		Tier:   tier,
		Reward: lo + r.Int63n(hi-lo+1),
		Title:  laborTitles[tier],
	}
}

// --- Ladder ---

// LadderPosition is one of the three rungs a player can pick.
type LadderPosition int

const (
	LadderLeft LadderPosition = iota
	LadderCenter
	LadderRight
)

var ladderNames = map[LadderPosition]string{
	LadderLeft:   "왼쪽",
	LadderCenter: "가운데",
	LadderRight:  "오른쪽",
}

func (p LadderPosition) String() string { return ladderNames[p] }

// ParseLadderPosition maps a command option value to a position.
func ParseLadderPosition(s string) (LadderPosition, error) {
	switch s {
	case "left", "왼쪽":
		return LadderLeft, nil
	case "center", "가운데":
		return LadderCenter, nil
	case "right", "오른쪽":
		return LadderRight, nil
	}
	return 0, fmt.Errorf("unknown ladder position %q", s)
}

// LadderResult is the outcome of one ladder ride.
type LadderResult struct {
	Picked LadderPosition
	Drawn  LadderPosition
	Won    bool
	// Net is +stake on a hit (payout stake*2) and -stake otherwise. There is
	// no third outcome.
	Net int64
}

// Ladder draws the winning rung independently of the player's pick.
func Ladder(r *rand.Rand, stake int64, picked LadderPosition) LadderResult {
	drawn := LadderPosition(r.Intn(3))
	res := LadderResult{Picked: picked, Drawn: drawn, Won: picked == drawn}
	if res.Won {
		res.Net = stake
	} else {
		res.Net = -stake
	}
	return res
}

// --- Slots ---

// slotBands partitions [0,100) into the miss tier plus five escalating
// matched-symbol tiers.
var slotBands = []band{
	{80, 0},
	{90, 1},
	{95, 2},
	{97.5, 3},
	{99.5, 4},
	{100, 5},
}

// slotMultipliers is the gross payout per staked unit; tier 0 is a miss.
var slotMultipliers = [6]int64{0, 2, 3, 5, 7, 10}

// slotSymbols are the winning marker symbols for tiers 1..5 (index 0 unused).
var slotSymbols = [6]string{"", "🍒", "🍋", "🍀", "💎", "7️⃣"}

// slotDecoys never pay out and are what a losing reel is sampled from.
var slotDecoys = []string{"🍇", "🍊", "🥝", "🔔", "⭐", "🥥"}

// SlotsResult is the outcome of one spin.
type SlotsResult struct {
	Tier       int
	Multiplier int64
	// Net is stake*multiplier - stake: -stake on a miss.
	Net  int64
	Reel [3]string
}

// Slots draws one weighted tier and builds the display reel. A winning spin
// shows the tier symbol three times; a miss shows three distinct decoys so
// the reel can never be mistaken for a win.
func Slots(r *rand.Rand, stake int64) SlotsResult {
	tier := pickBand(slotBands, r.Float64()*100)
	res := SlotsResult{
		Tier:       tier,
		Multiplier: slotMultipliers[tier],
		Net:        stake*slotMultipliers[tier] - stake,
	}

	if tier == 0 {
		perm := r.Perm(len(slotDecoys))
		for i := 0; i < 3; i++ {
			res.Reel[i] = slotDecoys[perm[i]]
		}
		return res
	}

	sym := slotSymbols[tier]
	res.Reel = [3]string{sym, sym, sym}
	return res
}
