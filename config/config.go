package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// Config es la configuración completa del scanner.
type Config struct {
	Scanner    ScannerConfig   `yaml:"scanner"`
	Scoring    ScoringConfig   `yaml:"scoring"`
	Arbitrage  ArbitrageConfig `yaml:"arbitrage"`
	Parlay     ParlayConfig    `yaml:"parlay"`
	Bookmakers []string        `yaml:"bookmakers" env:"BOOKMAKERS" envSeparator:","`
	API        APIConfig       `yaml:"api"`
	HTTP       HTTPConfig      `yaml:"http"`
	Storage    StorageConfig   `yaml:"storage"`
	Redis      RedisConfig     `yaml:"redis"`
	Log        LogConfig       `yaml:"log"`
}

// ScannerConfig controla el ciclo de refresco.
type ScannerConfig struct {
	Sports              []string `yaml:"sports" env:"SCANNER_SPORTS" envSeparator:","`
	IntervalSeconds     int      `yaml:"interval_seconds" env:"SCANNER_INTERVAL_SECONDS"`
	JitterSeconds       int      `yaml:"jitter_seconds"`
	FetchTimeoutSeconds int      `yaml:"fetch_timeout_seconds"`
	StaleTTLMultiplier  float64  `yaml:"stale_ttl_multiplier"` // staleTTL = multiplier × interval
	Workers             int      `yaml:"workers"`
	MinEV               float64  `yaml:"min_ev"` // min EV por defecto de la API
}

// ScoringConfig son los umbrales de confianza y slippage.
type ScoringConfig struct {
	HighEVThreshold          float64 `yaml:"high_ev_threshold"`
	MedEVThreshold           float64 `yaml:"med_ev_threshold"`
	HighBookMin              int     `yaml:"high_book_min"`
	MedBookMin               int     `yaml:"med_book_min"`
	LowDisagreementThreshold float64 `yaml:"low_disagreement_threshold"`
	SlippageBuffer           float64 `yaml:"slippage_buffer"`
	StabilityCeilingMinutes  int     `yaml:"stability_ceiling_minutes"`
	VolatilityReference      float64 `yaml:"volatility_reference"`
}

// ArbitrageConfig controla el reparto de stakes.
type ArbitrageConfig struct {
	TotalStake float64 `yaml:"total_stake"`
	MinProfit  float64 `yaml:"min_profit"` // % mínimo para publicar
}

// ParlayConfig controla las sugerencias de parlay.
type ParlayConfig struct {
	PoolSize           int     `yaml:"pool_size"`
	MaxLegs            int     `yaml:"max_legs"`
	MaxSuggestions     int     `yaml:"max_suggestions"`
	DefaultCorrelation float64 `yaml:"default_correlation"`
	SameGameFactor     float64 `yaml:"same_game_factor"`
	WarningThreshold   float64 `yaml:"warning_threshold"`
	AllowSameGame      bool    `yaml:"allow_same_game"`
}

// APIConfig apunta al feed de cuotas.
type APIConfig struct {
	BaseURL string `yaml:"base_url" env:"ODDS_API_BASE_URL"`
	Key     string `yaml:"key" env:"ODDS_API_KEY"`
	Regions string `yaml:"regions"`
}

// HTTPConfig controla la API de lectura.
type HTTPConfig struct {
	Addr        string   `yaml:"addr" env:"HTTP_ADDR"` // vacío desactiva el servidor
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

// StorageConfig controla dónde se persiste el histórico.
type StorageConfig struct {
	DSN string `yaml:"dsn" env:"STORAGE_DSN"` // ruta al archivo SQLite, ":memory:", o vacío para desactivar
}

// RedisConfig controla la réplica de snapshots.
type RedisConfig struct {
	URL        string `yaml:"url" env:"REDIS_URL"` // vacío desactiva
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: env overrides: %w", err)
	}
	trimAll(cfg.Bookmakers)
	trimAll(cfg.Scanner.Sports)
	trimAll(cfg.HTTP.CORSOrigins)

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// Jitter devuelve el desfase aleatorio máximo entre ciclos.
func (c *Config) Jitter() time.Duration {
	return time.Duration(c.Scanner.JitterSeconds) * time.Second
}

// FetchTimeout devuelve el timeout de cada fetch.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scanner.FetchTimeoutSeconds) * time.Second
}

// StaleTTL devuelve la antigüedad a partir de la cual un snapshot es stale.
func (c *Config) StaleTTL() time.Duration {
	return time.Duration(c.Scanner.StaleTTLMultiplier * float64(c.ScanInterval()))
}

// RedisTTL devuelve la expiración de las claves publicadas.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// ScoringConfig convierte la sección scoring al valor del dominio.
func (c *Config) ScoringConfig() domain.ScoringConfig {
	return domain.ScoringConfig{
		HighEVThreshold:          c.Scoring.HighEVThreshold,
		MedEVThreshold:           c.Scoring.MedEVThreshold,
		HighBookMin:              c.Scoring.HighBookMin,
		MedBookMin:               c.Scoring.MedBookMin,
		LowDisagreementThreshold: c.Scoring.LowDisagreementThreshold,
		SlippageBuffer:           c.Scoring.SlippageBuffer,
		StabilityCeiling:         time.Duration(c.Scoring.StabilityCeilingMinutes) * time.Minute,
		VolatilityReference:      c.Scoring.VolatilityReference,
	}
}

// ParlayCombinerConfig convierte los umbrales de confianza de parlays.
func (c *Config) ParlayCombinerConfig() domain.ParlayConfig {
	return domain.ParlayConfig{
		CorrelationWarningThreshold: c.Parlay.WarningThreshold,
		HighEVThreshold:             c.Scoring.HighEVThreshold,
		MedEVThreshold:              c.Scoring.MedEVThreshold,
	}
}

// Allowlist resuelve los nombres de libros configurados.
func (c *Config) Allowlist() ([]domain.Bookmaker, error) {
	out := make([]domain.Bookmaker, 0, len(c.Bookmakers))
	for _, name := range c.Bookmakers {
		b, err := domain.ParseBookmaker(name)
		if err != nil {
			return nil, fmt.Errorf("config.Allowlist: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Sports resuelve los deportes configurados.
func (c *Config) Sports() ([]domain.Sport, error) {
	out := make([]domain.Sport, 0, len(c.Scanner.Sports))
	for _, name := range c.Scanner.Sports {
		s, err := domain.ParseSport(name)
		if err != nil {
			return nil, fmt.Errorf("config.Sports: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Validate comprueba la configuración. Todos los errores envuelven
// domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Bookmakers) == 0 {
		add("bookmakers: allow-list is empty")
	} else if _, err := c.Allowlist(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Scanner.Sports) == 0 {
		add("scanner.sports: no sports configured")
	} else if _, err := c.Sports(); err != nil {
		errs = append(errs, err)
	}

	if c.Scanner.IntervalSeconds <= 0 {
		add("scanner.interval_seconds: must be positive, got %d", c.Scanner.IntervalSeconds)
	}
	if c.Scanner.FetchTimeoutSeconds <= 0 {
		add("scanner.fetch_timeout_seconds: must be positive, got %d", c.Scanner.FetchTimeoutSeconds)
	}
	if c.Scanner.JitterSeconds < 0 {
		add("scanner.jitter_seconds: must not be negative")
	}
	if c.Scanner.StaleTTLMultiplier < 1 {
		add("scanner.stale_ttl_multiplier: must be >= 1, got %v", c.Scanner.StaleTTLMultiplier)
	}

	s := c.Scoring
	if s.SlippageBuffer <= 0 || s.SlippageBuffer > 1 {
		add("scoring.slippage_buffer: must be in (0, 1], got %v", s.SlippageBuffer)
	}
	if s.MedEVThreshold > s.HighEVThreshold {
		add("scoring: med_ev_threshold %v above high_ev_threshold %v", s.MedEVThreshold, s.HighEVThreshold)
	}
	if s.MedBookMin > s.HighBookMin {
		add("scoring: med_book_min %d above high_book_min %d", s.MedBookMin, s.HighBookMin)
	}
	if err := c.ScoringConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}

	if c.Arbitrage.TotalStake <= 0 {
		add("arbitrage.total_stake: must be positive, got %v", c.Arbitrage.TotalStake)
	}

	p := c.Parlay
	if p.MaxLegs < 2 {
		add("parlay.max_legs: must be >= 2, got %d", p.MaxLegs)
	}
	if p.DefaultCorrelation <= 0 || p.DefaultCorrelation > 1 {
		add("parlay.default_correlation: must be in (0, 1], got %v", p.DefaultCorrelation)
	}
	if p.SameGameFactor <= 0 || p.SameGameFactor > 1 {
		add("parlay.same_game_factor: must be in (0, 1], got %v", p.SameGameFactor)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format: %q is not text or json", c.Log.Format)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config.Validate: %w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if len(cfg.Scanner.Sports) == 0 {
		cfg.Scanner.Sports = []string{"NBA", "NHL"}
	}
	if cfg.Scanner.IntervalSeconds == 0 {
		cfg.Scanner.IntervalSeconds = 45
	}
	if cfg.Scanner.FetchTimeoutSeconds == 0 {
		cfg.Scanner.FetchTimeoutSeconds = 10
	}
	if cfg.Scanner.StaleTTLMultiplier == 0 {
		cfg.Scanner.StaleTTLMultiplier = 3
	}
	if cfg.Scanner.MinEV == 0 {
		cfg.Scanner.MinEV = 2 // extractEVOpportunities(minEV=2)
	}

	def := domain.DefaultScoringConfig()
	s := &cfg.Scoring
	if s.HighEVThreshold == 0 {
		s.HighEVThreshold = def.HighEVThreshold
	}
	if s.MedEVThreshold == 0 {
		s.MedEVThreshold = def.MedEVThreshold
	}
	if s.HighBookMin == 0 {
		s.HighBookMin = def.HighBookMin
	}
	if s.MedBookMin == 0 {
		s.MedBookMin = def.MedBookMin
	}
	if s.LowDisagreementThreshold == 0 {
		s.LowDisagreementThreshold = def.LowDisagreementThreshold
	}
	if s.SlippageBuffer == 0 {
		s.SlippageBuffer = def.SlippageBuffer
	}
	if s.StabilityCeilingMinutes == 0 {
		s.StabilityCeilingMinutes = int(def.StabilityCeiling / time.Minute)
	}
	if s.VolatilityReference == 0 {
		s.VolatilityReference = def.VolatilityReference
	}

	if cfg.Arbitrage.TotalStake == 0 {
		cfg.Arbitrage.TotalStake = 1000
	}

	p := &cfg.Parlay
	if p.PoolSize == 0 {
		p.PoolSize = 8
	}
	if p.MaxLegs == 0 {
		p.MaxLegs = 3
	}
	if p.MaxSuggestions == 0 {
		p.MaxSuggestions = 5
	}
	if p.DefaultCorrelation == 0 {
		p.DefaultCorrelation = 1.0
	}
	if p.SameGameFactor == 0 {
		p.SameGameFactor = 0.90
	}
	if p.WarningThreshold == 0 {
		p.WarningThreshold = domain.DefaultParlayConfig().CorrelationWarningThreshold
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.the-odds-api.com"
	}
	if cfg.API.Regions == "" {
		cfg.API.Regions = "us"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 300
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func trimAll(items []string) {
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
}
