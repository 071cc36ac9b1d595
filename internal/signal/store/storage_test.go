package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/signal"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

var storageNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// StorageTestSuite runs the Storage contract against an implementation.
type StorageTestSuite struct {
	suite.Suite

	newStorage func(t *testing.T) Storage
	storage    Storage
}

func (s *StorageTestSuite) SetupTest() {
	s.storage = s.newStorage(s.T())
}

func TestMemoryStorageSuite(t *testing.T) {
	suite.Run(t, &StorageTestSuite{
		newStorage: func(_ *testing.T) Storage { return NewMemoryStorage() },
	})
}

func TestDuckDBStorageSuite(t *testing.T) {
	suite.Run(t, &StorageTestSuite{
		newStorage: func(t *testing.T) Storage {
			st, err := NewDuckDBStorage(":memory:", logger.NewNopLogger())
			if err != nil {
				t.Fatalf("failed to open duckdb storage: %v", err)
			}

			t.Cleanup(func() { st.Close() })

			return st
		},
	})
}

func TestDuckDBUpsertAtomicOnFailure(t *testing.T) {
	st, err := NewDuckDBStorage(":memory:", logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	def, err := signal.NewOscillatorSignal(
		"BTCUSDT", types.Interval15m, types.IndicatorTypeRSI,
		types.SignalOscillatorBelow, 30, indicator.Args{Period: 14}, storageNow,
	)
	require.NoError(t, err)
	require.NoError(t, st.Upsert(context.Background(), def))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// A failed replacement must not take the old row down with it.
	def.TriggerCount = 5
	require.Error(t, st.Upsert(cancelled, def))

	got, err := st.Get(context.Background(), def.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TriggerCount)
}

func (s *StorageTestSuite) makeDefinition(symbol string, offset time.Duration) signal.Definition {
	def, err := signal.NewOscillatorSignal(
		symbol, types.Interval15m, types.IndicatorTypeRSI,
		types.SignalOscillatorBelow, 30, indicator.Args{Period: 14}, storageNow,
	)
	s.Require().NoError(err)

	def.NextInvocation = storageNow.Add(offset)

	return def
}

func (s *StorageTestSuite) TestCreateIsIdempotent() {
	def := s.makeDefinition("BTCUSDT", 0)

	created, err := s.storage.Create(context.Background(), def)
	s.Require().NoError(err)
	s.True(created)

	created, err = s.storage.Create(context.Background(), def)
	s.Require().NoError(err)
	s.False(created)

	defs, err := s.storage.List(context.Background())
	s.Require().NoError(err)
	s.Len(defs, 1)
}

func (s *StorageTestSuite) TestGetRoundTrip() {
	def := s.makeDefinition("BTCUSDT", 0)

	s.Require().NoError(s.storage.Upsert(context.Background(), def))

	got, err := s.storage.Get(context.Background(), def.ID)
	s.Require().NoError(err)
	s.Equal(def.ID, got.ID)
	s.Equal(def.Symbol, got.Symbol)
	s.Equal(def.SignalType, got.SignalType)
	s.Equal(def.IndicatorArgs.Period, got.IndicatorArgs.Period)
	s.True(got.IsActive)
}

func (s *StorageTestSuite) TestGetMissing() {
	_, err := s.storage.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeSignalNotFound))
}

func (s *StorageTestSuite) TestDueSignalsOrderingAndFiltering() {
	later := s.makeDefinition("BTCUSDT", -time.Minute)
	earlier := s.makeDefinition("ETHUSDT", -time.Hour)
	future := s.makeDefinition("SOLUSDT", time.Hour)
	retired := s.makeDefinition("XRPUSDT", -time.Hour)
	retired.IsActive = false

	for _, def := range []signal.Definition{later, earlier, future, retired} {
		s.Require().NoError(s.storage.Upsert(context.Background(), def))
	}

	due, err := s.storage.DueSignals(context.Background(), storageNow)
	s.Require().NoError(err)

	s.Require().Len(due, 2)
	s.Equal("ETHUSDT", due[0].Symbol)
	s.Equal("BTCUSDT", due[1].Symbol)
}

func (s *StorageTestSuite) TestDeleteAndDeleteAll() {
	a := s.makeDefinition("BTCUSDT", 0)
	b := s.makeDefinition("ETHUSDT", 0)

	s.Require().NoError(s.storage.Upsert(context.Background(), a))
	s.Require().NoError(s.storage.Upsert(context.Background(), b))

	s.Require().NoError(s.storage.Delete(context.Background(), a.ID))

	err := s.storage.Delete(context.Background(), a.ID)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeSignalNotFound))

	removed, err := s.storage.DeleteAll(context.Background())
	s.Require().NoError(err)
	s.Equal(1, removed)

	defs, err := s.storage.List(context.Background())
	s.Require().NoError(err)
	s.Empty(defs)
}

func (s *StorageTestSuite) TestUpsertReplacesState() {
	def := s.makeDefinition("BTCUSDT", 0)
	s.Require().NoError(s.storage.Upsert(context.Background(), def))

	def.TriggerCount = 2
	def.IsActive = false
	s.Require().NoError(s.storage.Upsert(context.Background(), def))

	got, err := s.storage.Get(context.Background(), def.ID)
	s.Require().NoError(err)
	s.Equal(2, got.TriggerCount)
	s.False(got.IsActive)

	defs, err := s.storage.List(context.Background())
	s.Require().NoError(err)
	s.Len(defs, 1)
}
