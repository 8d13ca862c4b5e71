package scanner

// scanner.go — opportunity scan loop.
//
// Every tick: fetch the market catalog, keep active binary markets inside
// the expiry window, fetch both order books per candidate in batches,
// accept pairs whose combined best-ask cost sits inside the configured
// band, rank by composite score and publish the ranked slice. The scan
// never blocks order placement: placement reads the last published list.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/ports"
)

// Config contiene la configuración del scanner.
type Config struct {
	Interval        time.Duration
	MinCombinedCost float64
	MaxCombinedCost float64
	MinHoursToEnd   float64 // negativo = tolerar recién expirados
	MaxHoursToEnd   float64
	MaxMarkets      int
}

// Scanner es el orquestador del loop de escaneo.
type Scanner struct {
	cfg      Config
	markets  ports.MarketProvider
	books    ports.BookProvider
	notifier ports.Notifier

	mu     sync.RWMutex
	latest []domain.Opportunity
}

// New crea un Scanner con las dependencias inyectadas.
func New(cfg Config, markets ports.MarketProvider, books ports.BookProvider, notifier ports.Notifier) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Scanner{
		cfg:      cfg,
		markets:  markets,
		books:    books,
		notifier: notifier,
	}
}

// Latest devuelve la última lista publicada de oportunidades.
func (s *Scanner) Latest() []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Opportunity, len(s.latest))
	copy(out, s.latest)
	return out
}

// Run ejecuta el loop de escaneo hasta que el contexto se cancele.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"interval", s.cfg.Interval,
		"cost_band", fmt.Sprintf("[%.2f, %.2f]", s.cfg.MinCombinedCost, s.cfg.MaxCombinedCost),
	)

	if err := s.runCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				slog.Error("scan cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve las oportunidades.
func (s *Scanner) RunOnce(ctx context.Context) ([]domain.Opportunity, error) {
	return s.cycle(ctx)
}

// runCycle ejecuta un ciclo, publica el resultado y notifica.
func (s *Scanner) runCycle(ctx context.Context) error {
	start := time.Now()

	opps, err := s.cycle(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.latest = opps
	s.mu.Unlock()

	if err := s.notifier.Notify(ctx, opps); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	slog.Info("scan cycle complete",
		"candidates", len(opps),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// cycle hace fetch → filter → books → build → rank.
func (s *Scanner) cycle(ctx context.Context) ([]domain.Opportunity, error) {
	markets, err := s.markets.FetchActiveMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanner.cycle: fetch markets: %w", err)
	}

	now := time.Now()
	candidates := filterMarkets(markets, s.cfg)
	if len(candidates) > s.cfg.MaxMarkets && s.cfg.MaxMarkets > 0 {
		candidates = candidates[:s.cfg.MaxMarkets]
	}

	books, err := s.books.FetchOrderBooks(ctx, extractTokenIDs(candidates))
	if err != nil {
		return nil, fmt.Errorf("scanner.cycle: fetch books: %w", err)
	}

	opps := buildOpportunities(candidates, books, s.cfg, now)
	rankByScore(opps)
	return opps, nil
}

// filterMarkets aplica los filtros de catálogo: binario, activo, ventana
// de expiración.
func filterMarkets(markets []domain.Market, cfg Config) []domain.Market {
	var out []domain.Market
	for _, m := range markets {
		if m.Closed || m.Resolved || !m.Active {
			continue
		}
		if m.Tokens[0].TokenID == "" || m.Tokens[1].TokenID == "" {
			continue
		}
		hours := m.HoursToExpiry()
		if hours < cfg.MinHoursToEnd || hours > cfg.MaxHoursToEnd {
			continue
		}
		out = append(out, m)
	}
	return out
}

// buildOpportunities cruza mercados con sus books y aplica la banda de coste.
func buildOpportunities(markets []domain.Market, books map[string]domain.OrderBook, cfg Config, now time.Time) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, m := range markets {
		yesBook, okY := books[m.Tokens[0].TokenID]
		noBook, okN := books[m.Tokens[1].TokenID]
		if !okY || !okN {
			continue
		}

		yesAsk, noAsk := yesBook.BestAsk(), noBook.BestAsk()
		if yesAsk <= 0 || noAsk <= 0 {
			continue // ambos legs necesitan un best ask vivo
		}

		combined := yesAsk + noAsk
		if combined < cfg.MinCombinedCost || combined > cfg.MaxCombinedCost {
			continue
		}

		opp := domain.Opportunity{
			Market:       m,
			YesBook:      yesBook,
			NoBook:       noBook,
			YesAsk:       yesAsk,
			NoAsk:        noAsk,
			CombinedCost: combined,
			ProfitMargin: (1 - combined) * 100,
			SpreadTotal:  yesBook.Spread() + noBook.Spread(),
			MinDepth:     minFloat(yesBook.BestAskSize(), noBook.BestAskSize()),
			HoursToEnd:   m.HoursToExpiry(),
			ScannedAt:    now.Unix(),
		}
		opp.ComputeScore()
		opps = append(opps, opp)
	}
	return opps
}

// rankByScore ordena por score compuesto descendente.
func rankByScore(opps []domain.Opportunity) {
	sort.Slice(opps, func(i, j int) bool {
		return opps[i].Score > opps[j].Score
	})
}

// extractTokenIDs extrae todos los token_ids de los mercados.
func extractTokenIDs(markets []domain.Market) []string {
	ids := make([]string, 0, len(markets)*2)
	for _, m := range markets {
		for _, t := range m.Tokens {
			if t.TokenID != "" {
				ids = append(ids, t.TokenID)
			}
		}
	}
	return ids
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
