package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Scanner ScannerConfig `yaml:"scanner"`
	Trading TradingConfig `yaml:"trading"`
	Monitor MonitorConfig `yaml:"monitor"`
	Redeem  RedeemConfig  `yaml:"redeem"`
	API     APIConfig     `yaml:"api"`
	Chain   ChainConfig   `yaml:"chain"`
	State   StateConfig   `yaml:"state"`
	Log     LogConfig     `yaml:"log"`
}

// ScannerConfig controla el escaneo de oportunidades.
type ScannerConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	MinCombinedCost float64 `yaml:"min_combined_cost"` // banda de coste aceptada por $1
	MaxCombinedCost float64 `yaml:"max_combined_cost"`
	MinHoursToEnd   float64 `yaml:"min_hours_to_end"` // negativo = tolerar recién expirados
	MaxHoursToEnd   float64 `yaml:"max_hours_to_end"`
	MaxMarkets      int     `yaml:"max_markets"` // tope de candidatos por ciclo
}

// TradingConfig controla el planner de órdenes.
type TradingConfig struct {
	OrderBudgetUSDC  float64 `yaml:"order_budget_usdc"` // presupuesto por pareja
	ProfitTargetPct  float64 `yaml:"profit_target_pct"`
	MaxScale         float64 `yaml:"max_scale"` // tope < 1 para no cruzar el spread
}

// MonitorConfig controla el ciclo del monitor de posiciones.
type MonitorConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// RedeemConfig controla el auto-redeem de posiciones resueltas.
type RedeemConfig struct {
	Enabled         bool     `yaml:"enabled"`
	IntervalSeconds int      `yaml:"interval_seconds"`
	BatchSize       int      `yaml:"batch_size"`
	RelayerURL      string   `yaml:"relayer_url"`
	Recipients      []string `yaml:"recipients"` // direcciones que cuentan como payout propio
}

// APIConfig contiene los base URLs de las APIs de Polymarket.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
	DataBase  string `yaml:"data_base"`
}

// ChainConfig contiene los endpoints RPC de Polygon.
type ChainConfig struct {
	RPCURLs []string `yaml:"rpc_urls"`
}

// StateConfig controla dónde se persiste el estado local.
type StateConfig struct {
	Dir string `yaml:"dir"` // historial, credenciales, snapshots; vacío = temp dir
	DSN string `yaml:"dsn"` // SQLite para snapshots de equity
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// MonitorInterval devuelve el intervalo del monitor.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// RedeemInterval devuelve el intervalo del drain de redemptions.
func (c *Config) RedeemInterval() time.Duration {
	return time.Duration(c.Redeem.IntervalSeconds) * time.Second
}

// PrivateKey lee la clave privada desde el entorno. Nunca del YAML.
func PrivateKey() string {
	return strings.TrimPrefix(os.Getenv("POLY_PRIVATE_KEY"), "0x")
}

// Funder lee la dirección del funding wallet (proxy/safe) desde el entorno.
// Vacío = la dirección derivada de la clave privada.
func Funder() string {
	return os.Getenv("POLY_FUNDER")
}

// SignatureType lee el tipo de firma CLOB desde el entorno.
// Devuelve -1 si no está definido (el caller decide según el funder).
func SignatureType() int {
	switch os.Getenv("POLY_SIG_TYPE") {
	case "0":
		return 0 // EOA
	case "1":
		return 1 // proxy (Magic/email wallet)
	case "2":
		return 2 // Gnosis Safe
	default:
		return -1
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RELAYER_URL"); v != "" {
		cfg.Redeem.RelayerURL = v
	}
	if v := os.Getenv("POLYGON_RPC_URLS"); v != "" {
		cfg.Chain.RPCURLs = splitCSV(v)
	}
	if v := os.Getenv("STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
}

// setDefaults asegura valores sensatos para todo lo requerido.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 30
	}
	if cfg.Scanner.MinCombinedCost <= 0 {
		cfg.Scanner.MinCombinedCost = 0.99
	}
	if cfg.Scanner.MaxCombinedCost <= 0 {
		cfg.Scanner.MaxCombinedCost = 1.30
	}
	if cfg.Scanner.MinHoursToEnd == 0 {
		cfg.Scanner.MinHoursToEnd = -24
	}
	if cfg.Scanner.MaxHoursToEnd <= 0 {
		cfg.Scanner.MaxHoursToEnd = 96
	}
	if cfg.Scanner.MaxMarkets <= 0 {
		cfg.Scanner.MaxMarkets = 200
	}
	if cfg.Trading.OrderBudgetUSDC <= 0 {
		cfg.Trading.OrderBudgetUSDC = 100
	}
	if cfg.Trading.ProfitTargetPct <= 0 {
		cfg.Trading.ProfitTargetPct = 10
	}
	if cfg.Trading.MaxScale <= 0 || cfg.Trading.MaxScale >= 1 {
		cfg.Trading.MaxScale = 0.995
	}
	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 15
	}
	if cfg.Redeem.IntervalSeconds <= 0 {
		cfg.Redeem.IntervalSeconds = 5
	}
	if cfg.Redeem.BatchSize <= 0 {
		cfg.Redeem.BatchSize = 5
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if len(cfg.Chain.RPCURLs) == 0 {
		cfg.Chain.RPCURLs = []string{"https://polygon-rpc.com"}
	}
	if cfg.State.Dir == "" {
		cfg.State.Dir = filepath.Join(os.TempDir(), "arbbot-state")
	}
	if cfg.State.DSN == "" {
		cfg.State.DSN = filepath.Join(cfg.State.Dir, "arbbot.db")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
