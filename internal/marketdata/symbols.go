package marketdata

// symbolEntry maps an internal symbol to its upstream identifiers
type symbolEntry struct {
	Name        string
	KrakenPair  string
	BinancePair string
}

// defaultSymbols is the built-in symbol table. It seeds the read-only
// pair map at startup; dynamic discovery can extend but never mutate it
// mid-request.
var defaultSymbols = map[string]symbolEntry{
	"BTC":   {Name: "Bitcoin", KrakenPair: "XXBTZUSD", BinancePair: "BTCUSDT"},
	"ETH":   {Name: "Ethereum", KrakenPair: "XETHZUSD", BinancePair: "ETHUSDT"},
	"SOL":   {Name: "Solana", KrakenPair: "SOLUSD", BinancePair: "SOLUSDT"},
	"XRP":   {Name: "Ripple", KrakenPair: "XXRPZUSD", BinancePair: "XRPUSDT"},
	"ADA":   {Name: "Cardano", KrakenPair: "ADAUSD", BinancePair: "ADAUSDT"},
	"DOGE":  {Name: "Dogecoin", KrakenPair: "XDGUSD", BinancePair: "DOGEUSDT"},
	"DOT":   {Name: "Polkadot", KrakenPair: "DOTUSD", BinancePair: "DOTUSDT"},
	"LINK":  {Name: "Chainlink", KrakenPair: "LINKUSD", BinancePair: "LINKUSDT"},
	"AVAX":  {Name: "Avalanche", KrakenPair: "AVAXUSD", BinancePair: "AVAXUSDT"},
	"LTC":   {Name: "Litecoin", KrakenPair: "XLTCZUSD", BinancePair: "LTCUSDT"},
	"MATIC": {Name: "Polygon", KrakenPair: "MATICUSD", BinancePair: "MATICUSDT"},
	"ATOM":  {Name: "Cosmos", KrakenPair: "ATOMUSD", BinancePair: "ATOMUSDT"},
	"UNI":   {Name: "Uniswap", KrakenPair: "UNIUSD", BinancePair: "UNIUSDT"},
	"AAVE":  {Name: "Aave", KrakenPair: "AAVEUSD", BinancePair: "AAVEUSDT"},
	"ARB":   {Name: "Arbitrum", KrakenPair: "ARBUSD", BinancePair: "ARBUSDT"},
	"OP":    {Name: "Optimism", KrakenPair: "OPUSD", BinancePair: "OPUSDT"},
	"SUI":   {Name: "Sui", KrakenPair: "SUIUSD", BinancePair: "SUIUSDT"},
	"PEPE":  {Name: "Pepe", KrakenPair: "PEPEUSD", BinancePair: "PEPEUSDT"},
}

// DefaultSymbols returns the built-in symbols as PairInfo records
func DefaultSymbols() []PairInfo {
	out := make([]PairInfo, 0, len(defaultSymbols))
	for sym, e := range defaultSymbols {
		out = append(out, PairInfo{
			Symbol:     sym,
			Name:       e.Name,
			KrakenPair: e.KrakenPair,
			Base:       sym,
			Quote:      "USD",
		})
	}
	return out
}
