package mocks

//go:generate mockgen -destination=./mock_storage.go -package=mocks github.com/signalforge-lab/signalforge/internal/signal/store Storage
//go:generate mockgen -destination=./mock_stream_provider.go -package=mocks github.com/signalforge-lab/signalforge/internal/marketdata StreamProvider
