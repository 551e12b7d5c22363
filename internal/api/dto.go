package api

import (
	"trading-signalsv1/internal/analysis"
	"trading-signalsv1/internal/backtest"
	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/portfolio"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// AnalysisBody groups the readings of /analysis.
type AnalysisBody struct {
	RSI            indicator.RSIResult       `json:"rsi"`
	MACD           indicator.MACDResult      `json:"macd"`
	BollingerBands indicator.BollingerResult `json:"bollingerBands"`
	Signal         analysis.Signal           `json:"signal"`
}

// AnalysisResponse is returned by GET /api/v1/analysis/{symbol}.
type AnalysisResponse struct {
	Success      bool         `json:"success"`
	Symbol       string       `json:"symbol"`
	Interval     string       `json:"interval"`
	Analysis     AnalysisBody `json:"analysis"`
	CurrentPrice float64      `json:"currentPrice"`
}

func newAnalysisResponse(symbol, interval string, r analysis.Report) AnalysisResponse {
	return AnalysisResponse{
		Success:  true,
		Symbol:   symbol,
		Interval: interval,
		Analysis: AnalysisBody{
			RSI:            r.RSI,
			MACD:           r.MACD,
			BollingerBands: r.BollingerBands,
			Signal:         r.Signal,
		},
		CurrentPrice: r.CurrentPrice,
	}
}

// RSIResponse is returned by GET /api/v1/indicators/rsi/{symbol}.
type RSIResponse struct {
	Success bool                `json:"success"`
	Symbol  string              `json:"symbol"`
	RSI     indicator.RSIResult `json:"rsi"`
}

// MACDResponse is returned by GET /api/v1/indicators/macd/{symbol}.
type MACDResponse struct {
	Success bool                 `json:"success"`
	Symbol  string               `json:"symbol"`
	MACD    indicator.MACDResult `json:"macd"`
}

// EMAResponse is returned by GET /api/v1/indicators/ema/{symbol}.
type EMAResponse struct {
	Success bool             `json:"success"`
	Symbol  string           `json:"symbol"`
	Period  int              `json:"period"`
	EMA     indicator.Series `json:"ema"`
}

// CustomResponse is returned by GET /api/v1/indicators/custom/{symbol}.
type CustomResponse struct {
	Success    bool                        `json:"success"`
	Symbol     string                      `json:"symbol"`
	Indicators map[string]indicator.Series `json:"indicators"`
}

// SignalResponse is returned by GET /api/v1/signal/{symbol}.
type SignalResponse struct {
	Success      bool            `json:"success"`
	Symbol       string          `json:"symbol"`
	CurrentPrice float64         `json:"currentPrice"`
	Signal       analysis.Signal `json:"signal"`
}

// RiskRequest is the body of POST /api/v1/risk-management.
type RiskRequest struct {
	AccountBalance *float64 `json:"accountBalance"`
	RiskPercentage *float64 `json:"riskPercentage"`
	EntryPrice     *float64 `json:"entryPrice"`
	StopLoss       *float64 `json:"stopLoss"`
}

func (r RiskRequest) complete() bool {
	return r.AccountBalance != nil && r.RiskPercentage != nil && r.EntryPrice != nil && r.StopLoss != nil
}

// RiskResponse is returned by POST /api/v1/risk-management.
type RiskResponse struct {
	Success        bool                 `json:"success"`
	RiskManagement portfolio.RiskReport `json:"riskManagement"`
}

// BacktestResponse is returned by the backtest endpoints.
type BacktestResponse struct {
	Success  bool            `json:"success"`
	ID       string          `json:"id,omitempty"`
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Backtest backtest.Report `json:"backtest"`
}

// StrategiesResponse is returned by GET /api/v1/strategies.
type StrategiesResponse struct {
	Success    bool     `json:"success"`
	Strategies []string `json:"strategies"`
}

// BarsRequest is the body of the POST variants that take bars inline.
type BarsRequest struct {
	Symbol   string      `json:"symbol"`
	Interval string      `json:"interval"`
	Strategy string      `json:"strategy,omitempty"`
	Bars     []model.Bar `json:"bars"`
}
