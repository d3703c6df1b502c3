package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every externally supplied constant: transport settings,
// Redis connection, and the game/economy tuning knobs.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	RedisURL  string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	BotToken  string `env:"BOT_TOKEN"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-do-not-ship"`

	GridSize        int           `env:"MINES_GRID_SIZE" envDefault:"4"`
	MinBet          int64         `env:"MINES_MIN_BET" envDefault:"10"`
	StartingBalance int64         `env:"WALLET_STARTING_BALANCE" envDefault:"1000"`
	LoanCeiling     int64         `env:"LOAN_CEILING" envDefault:"5000"`
	LoanInterest    float64       `env:"LOAN_INTEREST" envDefault:"0.10"`
	ResultTTL       time.Duration `env:"RESULT_DISPLAY_TTL" envDefault:"30s"`

	// DefaultTier is the multiplier ladder used when a session carries a
	// mine count that has no configured ladder.
	DefaultTier int `env:"MINES_DEFAULT_TIER" envDefault:"3"`

	// Tiers maps a mine count to its multiplier ladder, indexed by number
	// of safe cells revealed (ladder[0] pays after the first reveal).
	Tiers map[int][]float64 `env:"-"`

	// ShopItems maps an item key to its display name and price.
	ShopItems map[string]ShopItem `env:"-"`
}

type ShopItem struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// defaultTiers are the observed production ladders. Riskier tiers pay more
// per reveal; each ladder is strictly increasing.
func defaultTiers() map[int][]float64 {
	return map[int][]float64{
		1:  {1.01, 1.08, 1.15, 1.25, 1.40, 1.55, 1.75, 2.0, 2.5, 3.0, 4.0, 5.0},
		3:  {1.10, 1.25, 1.45, 1.75, 2.15, 2.65, 3.30, 4.2, 5.5, 7.5, 10.0, 15.0},
		5:  {1.30, 1.65, 2.20, 3.00, 4.20, 6.00, 9.00, 14.0, 22.0, 35.0, 50.0},
		10: {2.50, 4.50, 9.00, 18.0, 40.0, 80.0},
	}
}

func defaultShopItems() map[string]ShopItem {
	return map[string]ShopItem{
		"vip":    {Name: "VIP Player", Price: 10000},
		"vip2":   {Name: "VIP 2", Price: 50000},
		"king":   {Name: "Lion King", Price: 100000},
		"god":    {Name: "God Mode", Price: 500000},
		"hacker": {Name: "Hacker", Price: 1000000},
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.Tiers = defaultTiers()
	cfg.ShopItems = defaultShopItems()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the engine cannot run on: degenerate
// grids, ladders that are not strictly increasing, or a default tier with
// no ladder to fall back to.
func (c *Config) Validate() error {
	if c.GridSize < 2 {
		return fmt.Errorf("grid size must be at least 2, got %d", c.GridSize)
	}
	if c.MinBet < 1 {
		return fmt.Errorf("minimum bet must be positive, got %d", c.MinBet)
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("starting balance cannot be negative, got %d", c.StartingBalance)
	}
	if c.LoanInterest < 0 {
		return fmt.Errorf("loan interest cannot be negative, got %f", c.LoanInterest)
	}

	if len(c.Tiers) == 0 {
		return fmt.Errorf("no multiplier tiers configured")
	}
	if _, ok := c.Tiers[c.DefaultTier]; !ok {
		return fmt.Errorf("default tier %d has no configured ladder", c.DefaultTier)
	}

	cells := c.GridSize * c.GridSize
	for mines, ladder := range c.Tiers {
		if mines <= 0 || mines >= cells {
			return fmt.Errorf("tier %d: mine count out of range for a %dx%d grid", mines, c.GridSize, c.GridSize)
		}
		if len(ladder) == 0 {
			return fmt.Errorf("tier %d: empty multiplier ladder", mines)
		}
		prev := 1.0
		for i, m := range ladder {
			if m <= prev {
				return fmt.Errorf("tier %d: ladder must be strictly increasing above 1.0, entry %d is %f", mines, i, m)
			}
			prev = m
		}
	}

	return nil
}
