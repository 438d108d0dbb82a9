package games

import (
	"math"
	"math/rand"
	"testing"
)

func TestLaborRewardWithinTierRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		res := Labor(r)
		if res.Tier < 0 || res.Tier > 6 {
			t.Fatalf("tier out of range: %d", res.Tier)
		}
		lo, hi := laborRewards[res.Tier][0], laborRewards[res.Tier][1]
		if res.Reward < lo || res.Reward > hi {
			t.Fatalf("reward %d outside [%d,%d] for tier %d", res.Reward, lo, hi, res.Tier)
		}
		if res.Title != laborTitles[res.Tier] {
			t.Fatalf("title mismatch for tier %d: %q", res.Tier, res.Title)
		}
	}
}

func TestLaborTierDistribution(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	const draws = 100000

	counts := make([]int, 7)
	for i := 0; i < draws; i++ {
		counts[Labor(r).Tier]++
	}

	// Expected probabilities from the cumulative band bounds.
	expected := []float64{0.50, 0.30, 0.13, 0.05, 0.015, 0.004, 0.001}
	for tier, want := range expected {
		got := float64(counts[tier]) / draws
		// Three-sigma binomial tolerance.
		sigma := math.Sqrt(want * (1 - want) / draws)
		if math.Abs(got-want) > 3*sigma+0.0005 {
			t.Errorf("tier %d frequency %.5f, want %.5f ± %.5f", tier, got, want, 3*sigma)
		}
	}
}

func TestPickBandCoversWholeRange(t *testing.T) {
	for _, bands := range [][]band{laborBands, slotBands} {
		prev := 0.0
		for i, b := range bands {
			if b.upper <= prev {
				t.Fatalf("band %d upper %f not increasing past %f", i, b.upper, prev)
			}
			prev = b.upper
		}
		if prev != 100 {
			t.Fatalf("bands end at %f, want 100", prev)
		}
		if got := pickBand(bands, 0); got != bands[0].tier {
			t.Errorf("roll 0 got tier %d", got)
		}
		if got := pickBand(bands, 99.999); got != bands[len(bands)-1].tier {
			t.Errorf("roll 99.999 got tier %d", got)
		}
	}
}

func TestParseLadderPosition(t *testing.T) {
	tests := []struct {
		input   string
		want    LadderPosition
		wantErr bool
	}{
		{"left", LadderLeft, false},
		{"왼쪽", LadderLeft, false},
		{"center", LadderCenter, false},
		{"가운데", LadderCenter, false},
		{"right", LadderRight, false},
		{"오른쪽", LadderRight, false},
		{"middle", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLadderPosition(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLadderPosition(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLadderPosition(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLadderHasExactlyTwoOutcomes(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const stake = 250

	for i := 0; i < 10000; i++ {
		res := Ladder(r, stake, LadderCenter)
		switch {
		case res.Won && res.Net != stake:
			t.Fatalf("win paid net %d, want %d", res.Net, stake)
		case !res.Won && res.Net != -stake:
			t.Fatalf("loss cost net %d, want %d", res.Net, -stake)
		}
		if res.Won != (res.Picked == res.Drawn) {
			t.Fatalf("won=%v but picked=%v drawn=%v", res.Won, res.Picked, res.Drawn)
		}
	}
}

func TestLadderWinRateNearOneThird(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	const draws = 100000

	wins := 0
	for i := 0; i < draws; i++ {
		if Ladder(r, 10, LadderLeft).Won {
			wins++
		}
	}
	got := float64(wins) / draws
	if math.Abs(got-1.0/3.0) > 0.01 {
		t.Errorf("win rate %.4f, want ~0.3333", got)
	}
}

func TestSlotsNet(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	const stake = 100

	for i := 0; i < 10000; i++ {
		res := Slots(r, stake)
		want := stake*res.Multiplier - stake
		if res.Net != want {
			t.Fatalf("net %d, want %d for multiplier %d", res.Net, want, res.Multiplier)
		}
		if res.Multiplier != slotMultipliers[res.Tier] {
			t.Fatalf("multiplier %d does not match tier %d", res.Multiplier, res.Tier)
		}
	}
}

func TestSlotsWinningReelIsTriple(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 20000; i++ {
		res := Slots(r, 10)
		if res.Tier == 0 {
			continue
		}
		sym := slotSymbols[res.Tier]
		for _, got := range res.Reel {
			if got != sym {
				t.Fatalf("winning reel %v not three of %q", res.Reel, sym)
			}
		}
	}
}

func TestSlotsMissReelNeverLooksLikeAWin(t *testing.T) {
	winners := make(map[string]bool)
	for _, s := range slotSymbols[1:] {
		winners[s] = true
	}

	r := rand.New(rand.NewSource(11))
	for i := 0; i < 20000; i++ {
		res := Slots(r, 10)
		if res.Tier != 0 {
			continue
		}
		seen := make(map[string]bool, 3)
		for _, sym := range res.Reel {
			if winners[sym] {
				t.Fatalf("miss reel %v contains winning symbol %q", res.Reel, sym)
			}
			if seen[sym] {
				t.Fatalf("miss reel %v repeats symbol %q", res.Reel, sym)
			}
			seen[sym] = true
		}
	}
}

func TestSlotsMissRateNearEightyPercent(t *testing.T) {
	r := rand.New(rand.NewSource(123))
	const draws = 100000

	misses := 0
	for i := 0; i < draws; i++ {
		if Slots(r, 10).Tier == 0 {
			misses++
		}
	}
	got := float64(misses) / draws
	if math.Abs(got-0.80) > 0.01 {
		t.Errorf("miss rate %.4f, want ~0.80", got)
	}
}
