package scanner

// concurrent.go: worker pool para puntuar mercados en paralelo.
//
// El scoring es CPU puro y no bloquea: los workers solo reparten mercados de
// un mismo fetch, así que el snapshot resultante nunca mezcla dos ciclos.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// analyzeMarketsConcurrent analiza todos los mercados usando un worker pool.
// Si workers <= 0 usa runtime.NumCPU().
func analyzeMarketsConcurrent(
	ctx context.Context,
	analyzer *Analyzer,
	markets []domain.Market,
	workers int,
	now time.Time,
) (opps []domain.EVOpportunity, arbs []domain.ArbitrageOpportunity, dropped int) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(markets) {
		workers = len(markets)
	}

	workCh := make(chan domain.Market, len(markets))
	resultCh := make(chan Analysis, len(markets))

	// Worker pool: cada worker toma mercados de workCh y envía resultados a resultCh.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range workCh {
				if ctx.Err() != nil {
					continue
				}
				res, err := analyzer.Analyze(m, now)
				if err != nil {
					slog.Debug("analyze failed", "event", m.Game.ID, "market", m.MarketKey, "err", err)
					continue
				}
				resultCh <- res
			}
		}()
	}

	for _, m := range markets {
		workCh <- m
	}
	close(workCh)

	// Cerrar resultCh cuando todos los workers terminen.
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		opps = append(opps, res.Opportunities...)
		if res.Arbitrage != nil {
			arbs = append(arbs, *res.Arbitrage)
		}
		dropped += res.Dropped
	}

	slog.Debug("concurrent analysis complete",
		"markets", len(markets),
		"opportunities", len(opps),
		"arbitrages", len(arbs),
		"workers", workers,
	)
	return opps, arbs, dropped
}
