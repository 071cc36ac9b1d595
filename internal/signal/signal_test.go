package signal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

var defNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDefinitionIDIsDeterministic(t *testing.T) {
	a := DefinitionID("BTCUSDT", types.Interval15m, types.SignalOscillatorBelow, 30)
	b := DefinitionID("BTCUSDT", types.Interval15m, types.SignalOscillatorBelow, 30)
	c := DefinitionID("BTCUSDT", types.Interval15m, types.SignalOscillatorBelow, 25)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestConstructorDefaults(t *testing.T) {
	def, err := NewOscillatorSignal("BTCUSDT", types.Interval15m, types.IndicatorTypeRSI, types.SignalOscillatorBelow, 30, indicator.Args{Period: 14}, defNow)
	require.NoError(t, err)

	assert.True(t, def.IsActive)
	assert.Equal(t, DefaultMaxTriggerTimes, def.MaxTriggerTimes)
	assert.Equal(t, defNow, def.NextInvocation)
	assert.Equal(t, 0, def.TriggerCount)
	assert.True(t, def.IsIndicatorBased())
}

func TestConstructorRejectsWrongFamily(t *testing.T) {
	_, err := NewOscillatorSignal("BTCUSDT", types.Interval15m, types.IndicatorTypeRSI, types.SignalPriceBelow, 30, indicator.Args{}, defNow)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = NewPriceSignal("BTCUSDT", types.Interval1h, types.SignalOscillatorAbove, 100, defNow)
	require.Error(t, err)
}

func TestPriceSignalNeedsNoIndicator(t *testing.T) {
	def, err := NewPriceSignal("BTCUSDT", types.Interval1h, types.SignalPriceBelow, 40000, defNow)
	require.NoError(t, err)
	assert.False(t, def.IsIndicatorBased())
}

func lineResult(values ...float64) indicator.Result {
	return indicator.Result{Line: values, Lines: nil}
}

func TestBuildDataModelOscillator(t *testing.T) {
	model, err := BuildDataModel(types.SignalOscillatorBelow, lineResult(math.NaN(), 40, 25), nil)
	require.NoError(t, err)

	data, ok := model.(OscillatorData)
	require.True(t, ok)
	assert.Equal(t, 25.0, data.Value)
}

func TestBuildDataModelCrossover(t *testing.T) {
	model, err := BuildDataModel(types.SignalCrossoverBullish, lineResult(math.NaN(), 1, 2, 3, 4, 10), nil)
	require.NoError(t, err)

	data, ok := model.(CrossoverData)
	require.True(t, ok)
	assert.Equal(t, []float64{2, 3, 4}, data.All)
	assert.Equal(t, 10.0, data.Current)
}

func TestBuildDataModelMACD(t *testing.T) {
	result := indicator.Result{
		Line: nil,
		Lines: map[string][]float64{
			indicator.MACDLine:      {math.NaN(), -1, 1},
			indicator.MACDSignal:    {math.NaN(), 0, 0.5},
			indicator.MACDHistogram: {math.NaN(), -1, 0.5},
		},
	}

	model, err := BuildDataModel(types.SignalMACDCross, result, nil)
	require.NoError(t, err)

	data, ok := model.(MACDData)
	require.True(t, ok)
	assert.Equal(t, 1.0, data.MACD)
	assert.Equal(t, 0.5, data.Signal)
	assert.Equal(t, 0.5, data.Histogram)
	assert.Equal(t, -1.0, data.PrevMACD)
	assert.Equal(t, 0.0, data.PrevSignal)
}

func TestBuildDataModelPriceUsesLastClose(t *testing.T) {
	candles := []types.Candle{
		{Close: 100},
		{Close: 101.5},
	}

	model, err := BuildDataModel(types.SignalPriceAbove, indicator.Result{}, candles)
	require.NoError(t, err)

	data, ok := model.(PriceData)
	require.True(t, ok)
	assert.Equal(t, 101.5, data.Value)
}

func TestBuildDataModelUnmappedTypeFailsLoudly(t *testing.T) {
	_, err := BuildDataModel(types.SignalType("made_up"), indicator.Result{}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnmappedSignalShape))
}

func TestOscillatorPredicateThreshold(t *testing.T) {
	registry := NewDefaultPredicateRegistry()
	predicate, err := registry.Get(types.SignalOscillatorBelow)
	require.NoError(t, err)

	def, err := NewOscillatorSignal("BTCUSDT", types.Interval15m, types.IndicatorTypeRSI, types.SignalOscillatorBelow, 30, indicator.Args{}, defNow)
	require.NoError(t, err)

	// Last value 25 with threshold 30 fires; 35 does not.
	result, err := predicate(OscillatorData{Value: 25}, &def)
	require.NoError(t, err)
	assert.True(t, result.Signal)

	result, err = predicate(OscillatorData{Value: 35}, &def)
	require.NoError(t, err)
	assert.False(t, result.Signal)
}

func TestCrossoverPredicates(t *testing.T) {
	registry := NewDefaultPredicateRegistry()
	def, err := NewCrossoverSignal("BTCUSDT", types.Interval1h, types.IndicatorTypeEMA, types.SignalCrossoverBullish, indicator.Args{}, defNow)
	require.NoError(t, err)

	bullish, err := registry.Get(types.SignalCrossoverBullish)
	require.NoError(t, err)

	result, err := bullish(CrossoverData{All: []float64{1, 2, 3}, Current: 4}, &def)
	require.NoError(t, err)
	assert.True(t, result.Signal)

	result, err = bullish(CrossoverData{All: []float64{1, 5, 3}, Current: 4}, &def)
	require.NoError(t, err)
	assert.False(t, result.Signal)
}

func TestMACDHistogramFlipPredicate(t *testing.T) {
	registry := NewDefaultPredicateRegistry()
	def, err := NewMACDSignal("BTCUSDT", types.Interval4h, types.SignalMACDHistogramFlip, indicator.Args{}, defNow)
	require.NoError(t, err)

	flip, err := registry.Get(types.SignalMACDHistogramFlip)
	require.NoError(t, err)

	// Previous histogram negative, current positive: fires.
	result, err := flip(MACDData{Histogram: 0.3, PrevMACD: -1, PrevSignal: -0.5}, &def)
	require.NoError(t, err)
	assert.True(t, result.Signal)

	// Histogram already positive before: no flip.
	result, err = flip(MACDData{Histogram: 0.3, PrevMACD: 1, PrevSignal: 0.5}, &def)
	require.NoError(t, err)
	assert.False(t, result.Signal)
}

func TestPredicateRejectsWrongModel(t *testing.T) {
	registry := NewDefaultPredicateRegistry()
	def, err := NewPriceSignal("BTCUSDT", types.Interval1h, types.SignalPriceBelow, 100, defNow)
	require.NoError(t, err)

	predicate, err := registry.Get(types.SignalPriceBelow)
	require.NoError(t, err)

	_, err = predicate(OscillatorData{Value: 1}, &def)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnmappedSignalShape))
}

func TestPredicateRegistryMissingType(t *testing.T) {
	registry := NewDefaultPredicateRegistry()

	_, err := registry.Get(types.SignalType("made_up"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePredicateNotFound))
}
