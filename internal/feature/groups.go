package feature

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-forecast/internal/types"
)

// builder accumulates indicator columns over one bar series. Errors are
// sticky so the group methods can chain without per-call checks.
type builder struct {
	table  *Table
	dates  []time.Time
	open   []float64
	high   []float64
	low    []float64
	close  []float64
	volume []float64
	err    error
}

func newBuilder(bars []types.Bar) *builder {
	n := len(bars)

	b := &builder{
		table:  nil,
		dates:  make([]time.Time, n),
		open:   make([]float64, n),
		high:   make([]float64, n),
		low:    make([]float64, n),
		close:  make([]float64, n),
		volume: make([]float64, n),
		err:    nil,
	}

	for i, bar := range bars {
		b.dates[i] = bar.Time
		b.open[i] = bar.Open
		b.high[i] = bar.High
		b.low[i] = bar.Low
		b.close[i] = bar.Close
		b.volume[i] = bar.Volume
	}

	b.table = NewTable(b.dates)

	return b
}

func (b *builder) add(name string, values []float64) {
	if b.err != nil {
		return
	}

	b.err = b.table.Add(name, values, leadingNaN(values))
}

func (b *builder) column(name string) []float64 {
	if b.err != nil {
		return nil
	}

	col, err := b.table.Column(name)
	if err != nil {
		b.err = err

		return nil
	}

	return col
}

// Group 1: raw price levels.
func (b *builder) addRawPrice() {
	b.add("Open", b.open)
	b.add("High", b.high)
	b.add("Low", b.low)
	b.add("Close", b.close)
	b.add("Volume", b.volume)

	typical := make([]float64, len(b.close))
	for i := range typical {
		typical[i] = (b.high[i] + b.low[i] + b.close[i]) / 3
	}

	b.add("Typical_Price", typical)
}

// Group 2: candle anatomy.
func (b *builder) addCandles() {
	n := len(b.close)
	body := make([]float64, n)
	upper := make([]float64, n)
	lower := make([]float64, n)
	direction := make([]float64, n)
	barRange := make([]float64, n)

	for i := 0; i < n; i++ {
		body[i] = math.Abs(b.close[i] - b.open[i])
		upper[i] = b.high[i] - math.Max(b.open[i], b.close[i])
		lower[i] = math.Min(b.open[i], b.close[i]) - b.low[i]
		barRange[i] = b.high[i] - b.low[i]

		if b.close[i] > b.open[i] {
			direction[i] = 1
		}
	}

	b.add("Body_Size", body)
	b.add("Upper_Wick", upper)
	b.add("Lower_Wick", lower)
	b.add("Candle_Direction", direction)
	b.add("Range", barRange)
}

// Group 3: returns.
func (b *builder) addReturns() {
	return1 := pctChange(b.close, 1)

	b.add("Log_Return", logReturns(b.close))
	b.add("Return_1", return1)
	b.add("Return_3", pctChange(b.close, 3))
	b.add("Return_5", pctChange(b.close, 5))
	b.add("Rolling_Mean_Return_5", sma(return1, 5))
	b.add("Rolling_Std_5", rollingStd(b.close, 5))
}

// Group 4: moving averages and trend.
func (b *builder) addTrend() {
	spans := []struct {
		name string
		span int
	}{
		{"EMA_9", 9},
		{"EMA_20", 20},
		{"EMA_50", 50},
		{"EMA_100", 100},
		{"EMA_200", 200},
	}

	for _, s := range spans {
		b.add(s.name, ema(b.close, s.span))
	}

	ema20 := b.column("EMA_20")
	ema50 := b.column("EMA_50")
	ema200 := b.column("EMA_200")

	if b.err != nil {
		return
	}

	b.add("Close_minus_EMA20", sub(b.close, ema20))
	b.add("Close_minus_EMA50", sub(b.close, ema50))
	b.add("Close_minus_EMA200", sub(b.close, ema200))
	b.add("EMA20_minus_EMA50", sub(ema20, ema50))
	b.add("EMA50_minus_EMA200", sub(ema50, ema200))
	b.add("EMA20_Slope", diff(ema20))
	b.add("EMA50_Slope", diff(ema50))
}

// Group 5: momentum oscillators.
func (b *builder) addMomentum() {
	rsi := relativeStrength(b.close, 14)
	b.add("RSI", rsi)
	b.add("RSI_Slope", diff(rsi))
	b.add("RSI_minus_50", addScalar(rsi, -50))

	macd := sub(emaMasked(b.close, 12, 12), emaMasked(b.close, 26, 26))
	signal := emaMasked(macd, 9, 9)

	b.add("MACD", macd)
	b.add("MACD_Signal", signal)
	b.add("MACD_Hist", sub(macd, signal))

	stochK, stochD := stochasticRSI(rsi, 14, 3, 3)
	b.add("Stoch_RSI_K", stochK)
	b.add("Stoch_RSI_D", stochD)
}

// Group 6: volatility bands.
func (b *builder) addVolatility() {
	atr := averageTrueRange(b.high, b.low, b.close, 14)
	b.add("ATR", atr)

	normalized := make([]float64, len(atr))
	for i, v := range atr {
		if b.close[i] < divisionEpsilon {
			normalized[i] = 0
			continue
		}

		normalized[i] = v / b.close[i]
	}

	b.add("ATR_Normalized", normalized)

	mid := sma(b.close, 20)
	std := rollingStdPop(b.close, 20)

	n := len(b.close)
	upperBand := make([]float64, n)
	lowerBand := make([]float64, n)
	width := make([]float64, n)
	percent := make([]float64, n)

	for i := 0; i < n; i++ {
		upperBand[i] = mid[i] + 2*std[i]
		lowerBand[i] = mid[i] - 2*std[i]
		width[i] = upperBand[i] - lowerBand[i]
		percent[i] = (b.close[i] - lowerBand[i]) / (width[i] + divisionEpsilon)
	}

	b.add("BB_Upper", upperBand)
	b.add("BB_Lower", lowerBand)
	b.add("BB_Width", width)
	b.add("BB_Percent", percent)
}

// Group 7: volume and liquidity.
func (b *builder) addVolume() {
	b.add("Volume_Change", pctChange(b.volume, 1))

	volumeMA := sma(b.volume, 20)
	b.add("Volume_MA20", volumeMA)
	b.add("OBV", onBalanceVolume(b.close, b.volume))

	typical := b.column("Typical_Price")
	if b.err != nil {
		return
	}

	n := len(b.close)
	vwap := make([]float64, n)
	closeMinusVWAP := make([]float64, n)
	ratio := make([]float64, n)

	cumPV := 0.0
	cumV := 0.0

	for i := 0; i < n; i++ {
		cumPV += typical[i] * b.volume[i]
		cumV += b.volume[i]

		if cumV < divisionEpsilon {
			vwap[i] = typical[i]
		} else {
			vwap[i] = cumPV / cumV
		}

		closeMinusVWAP[i] = b.close[i] - vwap[i]
		ratio[i] = b.volume[i] / (volumeMA[i] + divisionEpsilon)
	}

	b.add("VWAP", vwap)
	b.add("Close_minus_VWAP", closeMinusVWAP)
	b.add("Volume_Ratio", ratio)
}

// Group 8: market structure.
func (b *builder) addStructure() {
	high20 := rollingMax(b.high, 20)
	low20 := rollingMin(b.low, 20)

	b.add("Rolling_High_20", high20)
	b.add("Rolling_Low_20", low20)

	n := len(b.close)
	toResistance := make([]float64, n)
	toSupport := make([]float64, n)

	for i := 0; i < n; i++ {
		if b.close[i] < divisionEpsilon {
			continue
		}

		toResistance[i] = (high20[i] - b.close[i]) / b.close[i]
		toSupport[i] = (b.close[i] - low20[i]) / b.close[i]
	}

	b.add("Distance_to_Resistance", toResistance)
	b.add("Distance_to_Support", toSupport)

	prevHigh := shift(high20, 1)
	prevLow := shift(low20, 1)
	breakout := make([]float64, n)
	breakdown := make([]float64, n)

	for i := 0; i < n; i++ {
		if math.IsNaN(prevHigh[i]) {
			breakout[i] = math.NaN()
			breakdown[i] = math.NaN()

			continue
		}

		if b.close[i] > prevHigh[i] {
			breakout[i] = 1
		}

		if b.close[i] < prevLow[i] {
			breakdown[i] = 1
		}
	}

	b.add("Breakout_Flag", breakout)
	b.add("Breakdown_Flag", breakdown)
}

// Group 9: cyclical calendar encodings.
func (b *builder) addCalendar() {
	n := len(b.dates)
	hourSin := make([]float64, n)
	hourCos := make([]float64, n)
	dowSin := make([]float64, n)
	dowCos := make([]float64, n)

	for i, date := range b.dates {
		hour := float64(date.UTC().Hour())
		dow := float64(date.UTC().Weekday())

		hourSin[i] = math.Sin(2 * math.Pi * hour / 24)
		hourCos[i] = math.Cos(2 * math.Pi * hour / 24)
		dowSin[i] = math.Sin(2 * math.Pi * dow / 7)
		dowCos[i] = math.Cos(2 * math.Pi * dow / 7)
	}

	b.add("Hour_Sin", hourSin)
	b.add("Hour_Cos", hourCos)
	b.add("DayOfWeek_Sin", dowSin)
	b.add("DayOfWeek_Cos", dowCos)
}

// Group 10: lags of price, oscillators, and returns.
func (b *builder) addLags() {
	b.add("Close_Lag1", shift(b.close, 1))
	b.add("Close_Lag2", shift(b.close, 2))
	b.add("Close_Lag3", shift(b.close, 3))
	b.add("Close_Lag5", shift(b.close, 5))

	rsi := b.column("RSI")
	ema20 := b.column("EMA_20")
	ema50 := b.column("EMA_50")
	return1 := b.column("Return_1")

	if b.err != nil {
		return
	}

	b.add("RSI_Lag1", shift(rsi, 1))
	b.add("RSI_Lag2", shift(rsi, 2))
	b.add("EMA20_Lag1", shift(ema20, 1))
	b.add("EMA50_Lag1", shift(ema50, 1))
	b.add("Return1_Lag1", shift(return1, 1))
	b.add("Return1_Lag3", shift(return1, 3))
}

// Group 11: sentiment, already aligned to the bar timeline.
func (b *builder) addSentiment(points []types.SentimentPoint) {
	n := len(b.dates)
	score := make([]float64, n)
	category := make([]float64, n)
	positive := make([]float64, n)
	negative := make([]float64, n)
	neutral := make([]float64, n)
	newsVolume := make([]float64, n)

	for i, p := range points {
		score[i] = p.Score
		category[i] = float64(p.Category)
		positive[i] = float64(p.PositiveCount)
		negative[i] = float64(p.NegativeCount)
		neutral[i] = float64(p.NeutralCount)
		newsVolume[i] = float64(p.PositiveCount + p.NegativeCount + p.NeutralCount)
	}

	b.add("Sentiment_Score", score)
	b.add("Sentiment_Category", category)
	b.add("Positive_Count", positive)
	b.add("Negative_Count", negative)
	b.add("Neutral_Count", neutral)
	b.add("Sentiment_Momentum", diff(score))
	b.add("News_Volume", newsVolume)
}

// addIndexClose appends one external market index close series, already
// aligned to the bar timeline.
func (b *builder) addIndexClose(name string, closes []float64) {
	b.add(name+"_Close", closes)
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = a[i] - b[i]
	}

	return out
}

func addScalar(values []float64, scalar float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + scalar
	}

	return out
}

// relativeStrength is the Wilder RSI. A window with no losses and no gains is
// neutral 50 rather than undefined, so flat series stay usable.
func relativeStrength(closes []float64, window int) []float64 {
	deltas := diff(closes)
	gains := make([]float64, len(deltas))
	losses := make([]float64, len(deltas))

	for i, d := range deltas {
		if math.IsNaN(d) {
			gains[i] = math.NaN()
			losses[i] = math.NaN()

			continue
		}

		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	avgGain := wilderSmooth(gains, window)
	avgLoss := wilderSmooth(losses, window)

	out := make([]float64, len(closes))

	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			out[i] = math.NaN()
			continue
		}

		switch {
		case avgLoss[i] < divisionEpsilon && avgGain[i] < divisionEpsilon:
			out[i] = 50
		case avgLoss[i] < divisionEpsilon:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+avgGain[i]/avgLoss[i])
		}
	}

	return out
}

// stochasticRSI positions RSI inside its rolling range and smooths the result
// twice. A degenerate range (flat RSI) maps to zero.
func stochasticRSI(rsi []float64, window, smoothK, smoothD int) (k, d []float64) {
	minRSI := rollingMin(rsi, window)
	maxRSI := rollingMax(rsi, window)

	stoch := make([]float64, len(rsi))

	for i := range stoch {
		if math.IsNaN(minRSI[i]) || math.IsNaN(maxRSI[i]) {
			stoch[i] = math.NaN()
			continue
		}

		span := maxRSI[i] - minRSI[i]
		if span < divisionEpsilon {
			stoch[i] = 0
			continue
		}

		stoch[i] = (rsi[i] - minRSI[i]) / span
	}

	k = sma(stoch, smoothK)
	d = sma(k, smoothD)

	return k, d
}

// averageTrueRange is the Wilder-smoothed true range.
func averageTrueRange(high, low, closes []float64, window int) []float64 {
	tr := make([]float64, len(closes))

	for i := range tr {
		if i == 0 {
			tr[i] = math.NaN()
			continue
		}

		prev := closes[i-1]
		tr[i] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-prev), math.Abs(low[i]-prev)))
	}

	return wilderSmooth(tr, window)
}

// onBalanceVolume accumulates signed volume, subtracting only on down closes.
func onBalanceVolume(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))

	running := 0.0

	for i := range out {
		if i > 0 && closes[i] < closes[i-1] {
			running -= volumes[i]
		} else {
			running += volumes[i]
		}

		out[i] = running
	}

	return out
}
