package marketdata

import "errors"

// Typed errors surfaced to the API boundary. Handlers map ErrUnknownSymbol
// and ErrInvalidInterval to 4xx; everything else stays a 5xx.
var (
	ErrUnknownSymbol    = errors.New("unknown symbol")
	ErrInvalidInterval  = errors.New("invalid interval")
	ErrAllSourcesFailed = errors.New("all candle sources failed")
)
