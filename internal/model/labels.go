package model

// Zone is the categorical reading of an oscillator such as RSI.
type Zone string

const (
	ZoneOverbought Zone = "Overbought"
	ZoneOversold   Zone = "Oversold"
	ZoneNeutral    Zone = "Neutral"
)

// BandPosition locates the latest price relative to a volatility envelope.
type BandPosition string

const (
	BandOverbought BandPosition = "Overbought"
	BandOversold   BandPosition = "Oversold"
	BandNormal     BandPosition = "Normal"
)

// Trend is the MACD histogram direction.
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
)

// Crossover is the result of comparing the last two aligned points of two series.
type Crossover string

const (
	CrossoverBullish Crossover = "Bullish Crossover"
	CrossoverBearish Crossover = "Bearish Crossover"
	CrossoverNone    Crossover = "None"
)

// Action is a directional trading call.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)
