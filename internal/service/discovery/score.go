package discovery

import (
	"strings"
	"unicode"

	"github.com/emberdating/ember-backend/internal/db"
)

// Scoring weights for the cultural compatibility ranking. The sum is
// deterministic: two concrete profiles always score the same.
const (
	weightMacroGroup     = 5
	weightEthnicityMatch = 15
	weightReligion       = 3
	weightInterest       = 1
	weightZodiacElement  = 3
	weightAgeClose       = 5 // |ageA-ageB| <= 5
	weightAgeNear        = 2 // |ageA-ageB| <= 10
	weightSharedWord     = 2
)

// zodiac sign → element
var zodiacElements = map[string]string{
	"aries": "fire", "leo": "fire", "sagittarius": "fire",
	"taurus": "earth", "virgo": "earth", "capricorn": "earth",
	"gemini": "air", "libra": "air", "aquarius": "air",
	"cancer": "water", "scorpio": "water", "pisces": "water",
}

// complementary element pairing: fire↔air, earth↔water
var complementaryElements = map[string]string{
	"fire": "air", "air": "fire",
	"earth": "water", "water": "earth",
}

// CompatibilityScore computes the weighted cultural affinity between two
// profiles. Identical and complementary zodiac elements are mutually
// exclusive, not additive. The macro-group, religion and interest terms
// are set intersections, so the score is symmetric in them.
func CompatibilityScore(a, b *db.User) int {
	score := 0

	score += weightMacroGroup * intersectionSize(a.MacroGroups, b.MacroGroups)

	ea := strings.ToLower(strings.TrimSpace(a.EthnicityText))
	eb := strings.ToLower(strings.TrimSpace(b.EthnicityText))
	if ea != "" && ea == eb {
		score += weightEthnicityMatch
	}

	score += weightReligion * intersectionSize(a.Religions, b.Religions)
	score += weightInterest * intersectionSize(a.Interests, b.Interests)

	elemA := zodiacElements[strings.ToLower(strings.TrimSpace(a.Zodiac))]
	elemB := zodiacElements[strings.ToLower(strings.TrimSpace(b.Zodiac))]
	if elemA != "" && elemB != "" {
		if elemA == elemB {
			score += weightZodiacElement
		} else if complementaryElements[elemA] == elemB {
			score += weightZodiacElement
		}
	}

	ageDiff := a.Age - b.Age
	if ageDiff < 0 {
		ageDiff = -ageDiff
	}
	switch {
	case ageDiff <= 5:
		score += weightAgeClose
	case ageDiff <= 10:
		score += weightAgeNear
	}

	score += weightSharedWord * sharedSignificantWords(a, b)

	return score
}

func intersectionSize(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[normalizeTag(s)] = struct{}{}
	}
	count := 0
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		key := normalizeTag(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := set[key]; ok {
			count++
		}
	}
	return count
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// sharedSignificantWords counts distinct case-folded words longer than
// three characters appearing in both users' free-text bio fields.
func sharedSignificantWords(a, b *db.User) int {
	wordsA := significantWords(a.Bio + " " + a.CulturalBio)
	wordsB := significantWords(b.Bio + " " + b.CulturalBio)

	count := 0
	for w := range wordsB {
		if _, ok := wordsA[w]; ok {
			count++
		}
	}
	return count
}

func significantWords(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{})
	for _, w := range words {
		if len([]rune(w)) > 3 {
			set[w] = struct{}{}
		}
	}
	return set
}
