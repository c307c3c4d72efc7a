package models

// ListSelectionsRequest queries the ranked selections for one period.
type ListSelectionsRequest struct {
	Period string `query:"period" validate:"required"`
}

// CreateBacktestRequest submits a new backtest run.
type CreateBacktestRequest struct {
	Symbol         string  `json:"symbol" validate:"required"`
	From           string  `json:"from" validate:"required"`
	To             string  `json:"to" validate:"required"`
	InitialCapital float64 `json:"initial_capital" default:"10000" validate:"gt=0"`
	Timeframe      string  `json:"timeframe" default:"1h" validate:"oneof=1h 4h 1d"`
	TakeProfitPct  float64 `json:"take_profit_pct" default:"3" validate:"gt=0"`
	StopLossPct    float64 `json:"stop_loss_pct" default:"1.5" validate:"gt=0"`
	MaxHoldBars    int     `json:"max_hold_bars" default:"48" validate:"gt=0,lte=1000"`
	FillPolicy     string  `json:"fill_policy" default:"fail" validate:"oneof=fail forward_fill"`
	GapTolerance   int     `json:"gap_tolerance" default:"3" validate:"gte=0"`
}
