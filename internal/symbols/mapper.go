package symbols

import (
	"strings"

	"tradient/models"
)

// Mapper owns the bidirectional mapping between canonical BASE/QUOTE
// symbols and one exchange's native spelling. Each reader constructs
// its own Mapper and registers pairs as it learns them, either from
// the exchange's pair catalog or from the static conversion rules.
type Mapper struct {
	exchange    string
	toNative    map[models.Symbol]string
	toCanonical map[string]models.Symbol
}

// NewMapper creates an empty mapper for the given exchange.
func NewMapper(exchange string) *Mapper {
	return &Mapper{
		exchange:    exchange,
		toNative:    make(map[models.Symbol]string),
		toCanonical: make(map[string]models.Symbol),
	}
}

// Register records a canonical symbol and its native spelling.
func (m *Mapper) Register(canonical models.Symbol, native string) {
	m.toNative[canonical] = native
	m.toCanonical[native] = canonical
}

// ToNative resolves a canonical symbol to the exchange's spelling,
// falling back to the static conversion rules when unregistered.
func (m *Mapper) ToNative(s models.Symbol) string {
	if native, ok := m.toNative[s]; ok {
		return native
	}
	return Native(m.exchange, s)
}

// ToCanonical resolves a native spelling back to the canonical
// symbol, falling back to the static rules when unregistered.
func (m *Mapper) ToCanonical(native string) models.Symbol {
	if s, ok := m.toCanonical[native]; ok {
		return s
	}
	return Canonical(m.exchange, native)
}

// Known returns every canonical symbol registered with this mapper.
func (m *Mapper) Known() []models.Symbol {
	out := make([]models.Symbol, 0, len(m.toNative))
	for s := range m.toNative {
		out = append(out, s)
	}
	return out
}

// Native converts a canonical BASE/QUOTE symbol to the exchange's
// format. Binance and Bybit join the assets, Coinbase and OKX use a
// dash, Kraken keeps the slash and spells BTC as XBT.
func Native(exchange string, s models.Symbol) string {
	base, quote := s.Base(), s.Quote()
	switch strings.ToLower(exchange) {
	case "binance", "bybit":
		return base + quote
	case "coinbase", "okx":
		return base + "-" + quote
	case "kraken":
		if base == "BTC" {
			base = "XBT"
		}
		return base + "/" + quote
	default:
		return string(s)
	}
}

// Canonical converts an exchange-native spelling to BASE/QUOTE. Joined
// formats (Binance, Bybit) are split against the known quote assets.
func Canonical(exchange, native string) models.Symbol {
	native = strings.ToUpper(native)
	switch strings.ToLower(exchange) {
	case "coinbase", "okx":
		return models.Symbol(strings.ReplaceAll(native, "-", "/"))
	case "kraken":
		native = strings.ReplaceAll(native, "-", "/")
		if strings.HasPrefix(native, "XBT") {
			native = "BTC" + native[3:]
		}
		return models.Symbol(native)
	case "binance", "bybit":
		return splitJoined(native)
	default:
		return models.Symbol(native)
	}
}

// quoteAssets lists the quote currencies used to split joined symbols,
// longest first so USDT wins over USD.
var quoteAssets = []string{"USDT", "USDC", "TUSD", "BUSD", "USD", "EUR", "GBP", "BTC", "ETH", "BNB"}

func splitJoined(native string) models.Symbol {
	for _, q := range quoteAssets {
		if strings.HasSuffix(native, q) && len(native) > len(q) {
			return models.NewSymbol(native[:len(native)-len(q)], q)
		}
	}
	return models.Symbol(native)
}
