package domain

import "fmt"

// FairValueMode indica cómo se obtuvo la probabilidad justa de un outcome.
type FairValueMode int

const (
	// FairValueDeVig: cada libro cotiza el mercado completo y se le quita el
	// vig antes de promediar.
	FairValueDeVig FairValueMode = iota
	// FairValueRawImplied: a algún libro le falta el lado contrario y se
	// promedian las probabilidades implícitas crudas (vig incluido).
	FairValueRawImplied
)

func (m FairValueMode) String() string {
	if m == FairValueRawImplied {
		return "raw_implied"
	}
	return "devig"
}

func (m FairValueMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// FairValue es el resultado de EstimateFairValue. Lines son copias de las
// líneas del outcome; en modo DeVig llevan NoVigProbability de su libro, en
// RawImplied lo dejan a cero.
type FairValue struct {
	Probability float64
	Mode        FairValueMode
	Lines       []SportsbookLine
}

// EstimateFairValue calcula la probabilidad justa del outcome idx de m.
//
// Un único modo por outcome: si todos los libros que cotizan el outcome
// cotizan también el resto del mercado se usa FairValueDeVig; si no, todo el
// outcome cae a FairValueRawImplied. Nunca se mezclan.
func EstimateFairValue(m Market, idx int) (FairValue, error) {
	if idx < 0 || idx >= len(m.Outcomes) {
		return FairValue{}, fmt.Errorf("domain.EstimateFairValue: outcome %d out of range: %w", idx, ErrDegenerateMarket)
	}
	lines := m.Outcomes[idx].Lines
	if len(lines) == 0 {
		return FairValue{}, fmt.Errorf("domain.EstimateFairValue: no lines: %w", ErrDegenerateMarket)
	}

	// libro → implícita de cada outcome del mercado
	byBook := make(map[Bookmaker][]float64, len(lines))
	for j, o := range m.Outcomes {
		for _, l := range o.Lines {
			probs, ok := byBook[l.Bookmaker]
			if !ok {
				probs = make([]float64, len(m.Outcomes))
				byBook[l.Bookmaker] = probs
			}
			probs[j] = l.Odds.ImpliedProbability
		}
	}

	mode := FairValueDeVig
	if len(m.Outcomes) < 2 {
		mode = FairValueRawImplied
	}
	for _, l := range lines {
		if mode == FairValueRawImplied {
			break
		}
		for _, p := range byBook[l.Bookmaker] {
			if p <= 0 {
				mode = FairValueRawImplied
				break
			}
		}
	}

	out := make([]SportsbookLine, len(lines))
	var sum float64
	for i, l := range lines {
		p := l.Odds.ImpliedProbability
		if mode == FairValueDeVig {
			q, err := RemoveVig(byBook[l.Bookmaker])
			if err != nil {
				return FairValue{}, fmt.Errorf("domain.EstimateFairValue: %s: %w", l.Bookmaker, err)
			}
			p = q[idx]
			l.Odds.NoVigProbability = p
		}
		out[i] = l
		sum += p
	}

	return FairValue{
		Probability: sum / float64(len(lines)),
		Mode:        mode,
		Lines:       out,
	}, nil
}
