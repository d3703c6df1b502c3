package services

// Schedule maps (mine count, safe reveals) to a payout multiplier. Ladders
// come from configuration, are validated strictly increasing at load, and
// never change afterwards.
type Schedule struct {
	tiers       map[int][]float64
	defaultTier int
}

func NewSchedule(tiers map[int][]float64, defaultTier int) *Schedule {
	return &Schedule{tiers: tiers, defaultTier: defaultTier}
}

// ladder resolves the tier for a mine count, falling back to the default
// tier for unconfigured counts so a live game never errors on payout.
func (s *Schedule) ladder(mineCount int) []float64 {
	if ladder, ok := s.tiers[mineCount]; ok {
		return ladder
	}
	return s.tiers[s.defaultTier]
}

// KnownTier reports whether the mine count has its own ladder.
func (s *Schedule) KnownTier(mineCount int) bool {
	_, ok := s.tiers[mineCount]
	return ok
}

// MultiplierFor returns the multiplier after `revealed` safe cells. Zero
// reveals pay the base 1.0; reveals past the end of the ladder clamp to the
// final entry.
func (s *Schedule) MultiplierFor(mineCount, revealed int) float64 {
	if revealed <= 0 {
		return 1.0
	}
	ladder := s.ladder(mineCount)
	if revealed > len(ladder) {
		revealed = len(ladder)
	}
	return ladder[revealed-1]
}

// JackpotMultiplier is what a full clear of the board pays: the ladder's
// final entry.
func (s *Schedule) JackpotMultiplier(mineCount int) float64 {
	ladder := s.ladder(mineCount)
	return ladder[len(ladder)-1]
}
