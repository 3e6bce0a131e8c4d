package game

// Tier is an ordinal feedback bucket. Higher is better for the player.
type Tier int

type rung struct {
	min  int
	tier Tier
	text string
}

var semantleLadder = []rung{
	{80, 7, "Very hot! Extremely similar!"},
	{70, 6, "Hot! Very close!"},
	{60, 5, "Warm. Getting closer."},
	{50, 4, "Lukewarm. Somewhat related."},
	{40, 3, "Cool. Keep trying."},
	{30, 2, "Cold. Different direction."},
	{0, 1, "Freezing! Very unrelated."},
}

var antisemantleLadder = []rung{
	{90, 8, "Excellent! Nearly orthogonal semantic space!"},
	{80, 7, "Great! Very distant meaning!"},
	{70, 6, "Good! Quite unrelated!"},
	{60, 5, "Decent. Somewhat distant."},
	{50, 4, "OK. Could be more distant."},
	{40, 3, "Careful! Getting too related."},
	{30, 2, "Too close! Very related meaning!"},
	{0, 1, "Way too similar! Try opposite concepts!"},
}

// TierFound is reported for the winning guess in either mode.
const TierFound Tier = 9

// SemantleFeedback maps a similarity score to a tier and message.
func SemantleFeedback(score int, found bool) (Tier, string) {
	if found || score >= 100 {
		return TierFound, "Congratulations! You found the word!"
	}
	return climb(semantleLadder, score)
}

// AntisemantleFeedback maps a distance score to a tier and message.
func AntisemantleFeedback(distance int, found bool) (Tier, string) {
	if found {
		return TierFound, "Found it! The most distant word!"
	}
	return climb(antisemantleLadder, distance)
}

func climb(ladder []rung, v int) (Tier, string) {
	for _, r := range ladder {
		if v >= r.min {
			return r.tier, r.text
		}
	}
	last := ladder[len(ladder)-1]
	return last.tier, last.text
}
