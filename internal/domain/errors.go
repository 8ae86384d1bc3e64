package domain

import "errors"

// Errores del pipeline. Los llamadores clasifican con errors.Is; ninguno de
// ellos aborta un batch completo, solo el ítem o el cálculo que lo produjo.
var (
	// ErrInvalidOdds: precio mal formado (american == 0, decimal <= 1).
	ErrInvalidOdds = errors.New("invalid odds")
	// ErrDegenerateMarket: cero líneas o probabilidad total cero.
	ErrDegenerateMarket = errors.New("degenerate market")
	// ErrUnsupportedKey: clave de deporte, mercado o bookmaker desconocida.
	ErrUnsupportedKey = errors.New("unsupported key")
	// ErrFeedUnavailable: el feed upstream falló (red, 5xx, payload ilegible).
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrFeedTimeout: el fetch superó su timeout.
	ErrFeedTimeout = errors.New("feed timeout")
	// ErrInsufficientLegs: arbitraje o parlay con menos patas de las necesarias.
	ErrInsufficientLegs = errors.New("insufficient legs")
	// ErrInvalidStake: stake total no positivo.
	ErrInvalidStake = errors.New("invalid stake")
	// ErrInvalidCorrelation: correlationFactor fuera de (0, 1].
	ErrInvalidCorrelation = errors.New("invalid correlation factor")
	// ErrUntrackedSport: lectura de un deporte que no está configurado.
	ErrUntrackedSport = errors.New("untracked sport")
	// ErrInvalidConfig: configuración inválida; aborta el arranque.
	ErrInvalidConfig = errors.New("invalid config")
)
