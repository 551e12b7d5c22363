package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trading-signalsv1/internal/analysis"
	"trading-signalsv1/internal/backtest"
	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/logger"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/portfolio"
	"trading-signalsv1/internal/strategy"
)

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StrategiesResponse{Success: true, Strategies: strategy.Names()})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, s.limit)
	if err != nil {
		writeError(w, err)
		return
	}
	s.serve(w, r, "analysis", q.key("analysis"), func(ctx context.Context) (any, error) {
		bars, err := s.loadBars(ctx, q)
		if err != nil {
			return nil, err
		}
		rep, err := analysis.Analyze(model.Closes(bars))
		if err != nil {
			return nil, err
		}
		s.metrics.SignalEmitted(string(rep.Signal.Signal))
		return newAnalysisResponse(q.symbol, q.interval, rep), nil
	})
}

func (s *Server) handleRSI(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, s.limit)
	if err != nil {
		writeError(w, err)
		return
	}
	period, err := intParam(r, "period", indicator.DefaultRSIPeriod)
	if err != nil {
		writeError(w, err)
		return
	}
	s.serve(w, r, "rsi", q.key("rsi", strconv.Itoa(period)), func(ctx context.Context) (any, error) {
		bars, err := s.loadBars(ctx, q)
		if err != nil {
			return nil, err
		}
		rsi, err := indicator.RSI(model.Closes(bars), period)
		if err != nil {
			return nil, err
		}
		return RSIResponse{Success: true, Symbol: q.symbol, RSI: rsi}, nil
	})
}

func (s *Server) handleMACD(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, s.limit)
	if err != nil {
		writeError(w, err)
		return
	}
	s.serve(w, r, "macd", q.key("macd"), func(ctx context.Context) (any, error) {
		bars, err := s.loadBars(ctx, q)
		if err != nil {
			return nil, err
		}
		macd, err := indicator.DefaultMACD(model.Closes(bars))
		if err != nil {
			return nil, err
		}
		return MACDResponse{Success: true, Symbol: q.symbol, MACD: macd}, nil
	})
}

func (s *Server) handleEMA(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, s.limit)
	if err != nil {
		writeError(w, err)
		return
	}
	period, err := intParam(r, "period", indicator.DefaultEMAPeriod)
	if err != nil {
		writeError(w, err)
		return
	}
	s.serve(w, r, "ema", q.key("ema", strconv.Itoa(period)), func(ctx context.Context) (any, error) {
		bars, err := s.loadBars(ctx, q)
		if err != nil {
			return nil, err
		}
		ema, err := indicator.EMA(model.Closes(bars), period)
		if err != nil {
			return nil, err
		}
		return EMAResponse{Success: true, Symbol: q.symbol, Period: period, EMA: ema}, nil
	})
}

// handleCustom evaluates ?specs=RSI:14,EMA:9 (default set when absent).
func (s *Server) handleCustom(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, s.limit)
	if err != nil {
		writeError(w, err)
		return
	}
	raw := r.URL.Query().Get("specs")
	specs := indicator.ParseSpecs(raw)
	if len(specs) == 0 {
		writeError(w, fmt.Errorf("%w: no valid indicator in specs %q", indicator.ErrInvalidInput, raw))
		return
	}
	names := make([]string, len(specs))
	for i, sp := range specs {
		names[i] = sp.Name()
	}
	s.serve(w, r, "custom", q.key("custom", strings.Join(names, ",")), func(ctx context.Context) (any, error) {
		bars, err := s.loadBars(ctx, q)
		if err != nil {
			return nil, err
		}
		prices := model.Closes(bars)
		out := make(map[string]indicator.Series, len(specs))
		for _, sp := range specs {
			series, err := indicator.Compute(sp, prices)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sp.Name(), err)
			}
			out[sp.Name()] = series
		}
		return CustomResponse{Success: true, Symbol: q.symbol, Indicators: out}, nil
	})
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, s.limit)
	if err != nil {
		writeError(w, err)
		return
	}
	s.serve(w, r, "signal", q.key("signal"), func(ctx context.Context) (any, error) {
		bars, err := s.loadBars(ctx, q)
		if err != nil {
			return nil, err
		}
		return s.signal(q.symbol, bars)
	})
}

func (s *Server) signal(symbol string, bars []model.Bar) (SignalResponse, error) {
	prices := model.Closes(bars)
	sig, err := analysis.GenerateSignal(prices)
	if err != nil {
		return SignalResponse{}, err
	}
	s.metrics.SignalEmitted(string(sig.Signal))
	return SignalResponse{
		Success:      true,
		Symbol:       symbol,
		CurrentPrice: prices[len(prices)-1],
		Signal:       sig,
	}, nil
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var req RiskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.complete() {
		writeError(w, fmt.Errorf("%w: missing required parameters", indicator.ErrInvalidInput))
		return
	}
	s.serve(w, r, "risk", "", func(context.Context) (any, error) {
		rep, err := portfolio.RiskManagement(*req.AccountBalance, *req.RiskPercentage, *req.EntryPrice, *req.StopLoss)
		if err != nil {
			return nil, err
		}
		return RiskResponse{Success: true, RiskManagement: rep}, nil
	})
}

// handleBacktest replays stored bars. With ?save=true the report is persisted
// and not cached.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, s.backtestLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	strat, err := strategy.Lookup(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, err)
		return
	}
	save := r.URL.Query().Get("save") == "true"
	if save && s.runs == nil {
		writeError(w, fmt.Errorf("%w: backtest persistence is not configured", indicator.ErrInvalidInput))
		return
	}

	key := q.key("backtest", strat.Name())
	if save {
		key = ""
	}
	s.serve(w, r, "backtest", key, func(ctx context.Context) (any, error) {
		bars, err := s.loadBars(ctx, q)
		if err != nil {
			return nil, err
		}
		resp, err := s.backtest(q.symbol, q.interval, bars, strat)
		if err != nil {
			return nil, err
		}
		if save {
			id, err := s.runs.SaveBacktest(ctx, q.symbol, q.interval, resp.Backtest)
			if err != nil {
				return nil, fmt.Errorf("save backtest: %w", err)
			}
			resp.ID = id
			slog.InfoContext(ctx, "backtest saved", append(logger.Attrs(ctx), "id", id, "symbol", q.symbol)...)
		}
		return resp, nil
	})
}

func (s *Server) backtest(symbol, interval string, bars []model.Bar, strat strategy.Strategy) (BacktestResponse, error) {
	start := time.Now()
	rep, err := backtest.RunStrategy(bars, strat)
	if err != nil {
		return BacktestResponse{}, err
	}
	s.metrics.BacktestDone(rep.Strategy, rep.TotalTrades, time.Since(start))
	return BacktestResponse{Success: true, Symbol: symbol, Interval: interval, Backtest: rep}, nil
}

// ── Inline bars ──

func (s *Server) decodeBars(w http.ResponseWriter, r *http.Request) (BarsRequest, error) {
	var req BarsRequest
	if err := decodeBody(w, r, &req); err != nil {
		return req, err
	}
	if len(req.Bars) == 0 {
		return req, fmt.Errorf("%w: bars are required", indicator.ErrInvalidInput)
	}
	if req.Interval == "" {
		req.Interval = s.interval
	}
	return req, nil
}

func (s *Server) handleAnalysisInline(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeBars(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.serve(w, r, "analysis", "", func(context.Context) (any, error) {
		rep, err := analysis.Analyze(model.Closes(req.Bars))
		if err != nil {
			return nil, err
		}
		s.metrics.SignalEmitted(string(rep.Signal.Signal))
		return newAnalysisResponse(req.Symbol, req.Interval, rep), nil
	})
}

func (s *Server) handleSignalInline(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeBars(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.serve(w, r, "signal", "", func(context.Context) (any, error) {
		return s.signal(req.Symbol, req.Bars)
	})
}

func (s *Server) handleBacktestInline(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeBars(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	strat, err := strategy.Lookup(req.Strategy)
	if err != nil {
		writeError(w, err)
		return
	}
	s.serve(w, r, "backtest", "", func(context.Context) (any, error) {
		return s.backtest(req.Symbol, req.Interval, req.Bars, strat)
	})
}
