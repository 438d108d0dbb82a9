// Package autovc creates and reaps numbered voice channels behind an
// admin-configured generator channel.
package autovc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

var trailingNumber = regexp.MustCompile(`(\d+)$`)

// NumberedChannel is one managed channel inside the target category, keyed by
// its trailing numeric suffix.
type NumberedChannel struct {
	Number    int
	ChannelID snowflake.ID
	Position  int
}

// ExtractSuffix parses the trailing number of a managed channel name.
// Channels without a parseable suffix are ignored by the allocator.
func ExtractSuffix(name, baseName string) (int, bool) {
	if !strings.HasPrefix(name, baseName) {
		return 0, false
	}
	m := trailingNumber.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SortBySuffix orders channels by suffix ascending, the order the category is
// kept in.
func SortBySuffix(channels []NumberedChannel) {
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Number < channels[j].Number
	})
}

// NextNumber returns the smallest positive integer absent from the existing
// suffixes.
func NextNumber(existing []NumberedChannel) int {
	taken := make(map[int]bool, len(existing))
	for _, ch := range existing {
		taken[ch.Number] = true
	}
	n := 1
	for taken[n] {
		n++
	}
	return n
}

// InsertPosition computes the platform position for a new channel numbered
// newNumber. channels must be sorted by suffix. The new channel goes directly
// after the last managed channel with a smaller suffix, before the first one
// when every suffix is larger, and directly below the category when none
// exist.
func InsertPosition(channels []NumberedChannel, newNumber, categoryPosition int) int {
	if len(channels) == 0 {
		return categoryPosition - 1
	}

	insertIndex := 0
	for i, ch := range channels {
		if newNumber < ch.Number {
			break
		}
		insertIndex = i + 1
	}

	if insertIndex == 0 {
		return channels[0].Position - 1
	}
	return channels[insertIndex-1].Position + 1
}
