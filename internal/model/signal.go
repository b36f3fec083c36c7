package model

// StateSymbol is the discretized direction of a close-to-close return.
type StateSymbol int

const (
	Down StateSymbol = iota
	Flat
	Up
)

// NumSymbols is the alphabet size of StateSymbol.
const NumSymbols = 3

func (s StateSymbol) String() string {
	switch s {
	case Down:
		return "down"
	case Flat:
		return "flat"
	case Up:
		return "up"
	default:
		return "unknown"
	}
}

// Signal is a directional trading decision.
type Signal int

const (
	Sell Signal = -1
	Hold Signal = 0
	Buy  Signal = 1
)

func (s Signal) String() string {
	switch s {
	case Sell:
		return "SELL"
	case Buy:
		return "BUY"
	default:
		return "HOLD"
	}
}

// SignOf reduces a real value to a Signal. Values within eps of zero are Hold.
func SignOf(v, eps float64) Signal {
	switch {
	case v > eps:
		return Buy
	case v < -eps:
		return Sell
	default:
		return Hold
	}
}

// SignalSeries is aligned index-for-index with the price series it was built from.
type SignalSeries []Signal

// Trades counts non-hold entries.
func (s SignalSeries) Trades() int {
	n := 0
	for _, v := range s {
		if v != Hold {
			n++
		}
	}
	return n
}
