package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ArbitrageBet es una pata de un arbitraje.
type ArbitrageBet struct {
	Bookmaker Bookmaker `json:"bookmaker"`
	Outcome   string    `json:"outcome"`
	Point     *float64  `json:"point,omitempty"`
	Odds      Odds      `json:"odds"`
	Stake     float64   `json:"stake"`
	Payout    float64   `json:"payout"`
}

// Arbitrage es el resultado de DetectArbitrage: asignación de stakes que
// iguala el pago en todas las patas. Stakes y beneficio van redondeados a
// céntimos; la suma de stakes es exactamente TotalStake.
type Arbitrage struct {
	Bets                    []ArbitrageBet
	TotalStake              float64
	TotalImpliedProbability float64
	// ProfitPercentage = (1 − Σp) × 100
	ProfitPercentage float64
	// GuaranteedProfit es el menor pago menos TotalStake.
	GuaranteedProfit float64
	// ReturnOnStake = GuaranteedProfit / TotalStake × 100
	ReturnOnStake float64
}

// ArbitrageOpportunity es un arbitraje detectado en un mercado de un evento.
type ArbitrageOpportunity struct {
	ID                      string         `json:"id"`
	Sport                   Sport          `json:"sport"`
	Game                    GameInfo       `json:"game"`
	MarketType              BetType        `json:"marketType"`
	MarketKey               string         `json:"marketKey"`
	Bets                    []ArbitrageBet `json:"bets"`
	TotalStake              float64        `json:"totalStake"`
	TotalImpliedProbability float64        `json:"totalImpliedProbability"`
	ProfitPercentage        float64        `json:"profitPercentage"`
	GuaranteedProfit        float64        `json:"guaranteedProfit"`
	ReturnOnStake           float64        `json:"returnOnStake"`
	AgeMinutes              float64        `json:"ageMinutes"`
	DetectedAt              time.Time      `json:"detectedAt"`
}

// TotalImpliedProbability suma las implícitas de las líneas.
func TotalImpliedProbability(lines []SportsbookLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += ImpliedProbability(l.Odds.Decimal)
	}
	return sum
}

// DetectArbitrage evalúa un conjunto de líneas de outcomes mutuamente
// excluyentes. ok es true solo si Σp < 1 y las patas vienen de al menos dos
// libros distintos: un solo libro no genera arbitraje entre libros.
func DetectArbitrage(legs []SportsbookLine, totalStake float64) (arb Arbitrage, ok bool, err error) {
	if len(legs) < 2 {
		return Arbitrage{}, false, fmt.Errorf("domain.DetectArbitrage: %d legs: %w", len(legs), ErrInsufficientLegs)
	}
	if totalStake <= 0 {
		return Arbitrage{}, false, fmt.Errorf("domain.DetectArbitrage: stake %v: %w", totalStake, ErrInvalidStake)
	}
	books := make(map[Bookmaker]struct{}, len(legs))
	for _, l := range legs {
		if !(l.Odds.Decimal > 1) {
			return Arbitrage{}, false, fmt.Errorf("domain.DetectArbitrage: %s decimal %v: %w", l.Bookmaker, l.Odds.Decimal, ErrInvalidOdds)
		}
		books[l.Bookmaker] = struct{}{}
	}

	sum := TotalImpliedProbability(legs)
	if sum >= 1 || len(books) < 2 {
		return Arbitrage{TotalStake: totalStake, TotalImpliedProbability: sum}, false, nil
	}

	total := decimal.NewFromFloat(totalStake).Round(2)
	allocated := decimal.Zero
	bets := make([]ArbitrageBet, len(legs))
	minPayout := decimal.Zero
	for i, l := range legs {
		var stake decimal.Decimal
		if i == len(legs)-1 {
			stake = total.Sub(allocated)
		} else {
			share := ImpliedProbability(l.Odds.Decimal) / sum
			stake = total.Mul(decimal.NewFromFloat(share)).Round(2)
			allocated = allocated.Add(stake)
		}
		payout := stake.Mul(decimal.NewFromFloat(l.Odds.Decimal)).Round(2)
		if i == 0 || payout.LessThan(minPayout) {
			minPayout = payout
		}
		bets[i] = ArbitrageBet{
			Bookmaker: l.Bookmaker,
			Outcome:   l.Outcome,
			Point:     l.Point,
			Odds:      l.Odds,
			Stake:     stake.InexactFloat64(),
			Payout:    payout.InexactFloat64(),
		}
	}

	profit := minPayout.Sub(total)
	return Arbitrage{
		Bets:                    bets,
		TotalStake:              total.InexactFloat64(),
		TotalImpliedProbability: sum,
		ProfitPercentage:        (1 - sum) * 100,
		GuaranteedProfit:        profit.InexactFloat64(),
		ReturnOnStake:           profit.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64(),
	}, true, nil
}

// NewArbitrageOpportunity envuelve un Arbitrage con el contexto del mercado.
// El id es determinista para (evento, mercado, libros y outcomes de las patas).
func NewArbitrageOpportunity(m Market, arb Arbitrage, legs []SportsbookLine, now time.Time) ArbitrageOpportunity {
	key := m.Game.ID + "|" + m.MarketKey
	var oldest time.Time
	for i, l := range legs {
		key += fmt.Sprintf("|%s:%s:%s", l.Bookmaker, l.Outcome, FormatPoint(l.PointValue(), false))
		if i == 0 || l.ObservedAt.Before(oldest) {
			oldest = l.ObservedAt
		}
	}
	age := now.Sub(oldest).Minutes()
	if age < 0 {
		age = 0
	}
	return ArbitrageOpportunity{
		ID:                      uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
		Sport:                   m.Game.Sport,
		Game:                    m.Game,
		MarketType:              m.BetType,
		MarketKey:               m.MarketKey,
		Bets:                    arb.Bets,
		TotalStake:              arb.TotalStake,
		TotalImpliedProbability: arb.TotalImpliedProbability,
		ProfitPercentage:        arb.ProfitPercentage,
		GuaranteedProfit:        arb.GuaranteedProfit,
		ReturnOnStake:           arb.ReturnOnStake,
		AgeMinutes:              age,
		DetectedAt:              now,
	}
}
