package testkit

import (
	"io"
	"net/http/httptest"
	"time"

	"medstat/adapters/statsapi"
	"medstat/domain/dataset"
	"medstat/internal"
)

// TestKit wires a running fake stats API to a real client
type TestKit struct {
	API    *FakeStatsAPI
	Server *httptest.Server
	Client *statsapi.Client
	Logger *internal.Logger
}

// NewTestKit starts the fake API. Call Close when done.
func NewTestKit() *TestKit {
	api := NewFakeStatsAPI()
	srv := api.Start()
	logger := QuietLogger()
	return &TestKit{
		API:    api,
		Server: srv,
		Client: statsapi.NewClient(srv.URL, 5*time.Second, logger),
		Logger: logger,
	}
}

// Close stops the fake API server
func (k *TestKit) Close() {
	k.Server.Close()
}

// QuietLogger discards everything below errors and errors themselves
func QuietLogger() *internal.Logger {
	return internal.NewLoggerTo(io.Discard, internal.LogLevelError)
}

// TrialDataset generates a reproducible trial dataset with n patients
func TrialDataset(n int) *dataset.Dataset {
	cfg := DefaultTrialConfig()
	cfg.PatientCount = n
	ds, err := NewTrialDataGenerator(cfg).Generate("trial")
	if err != nil {
		panic(err)
	}
	return ds
}

// SmallDataset builds a dataset from literal rows, panicking on bad input
func SmallDataset(headers []string, rows ...[]string) *dataset.Dataset {
	ds, err := dataset.New("test", dataset.SourceManual, headers, rows)
	if err != nil {
		panic(err)
	}
	return ds
}
