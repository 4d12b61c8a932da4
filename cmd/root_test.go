package cmd

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Tests in this file swap loadEnv and must not run in parallel.

func stubEnv(t *testing.T, cfg config.Config) {
	t.Helper()
	orig := loadEnv
	loadEnv = func(string) (*env, error) {
		return &env{cfg: cfg, logger: zap.NewNop()}, nil
	}
	t.Cleanup(func() { loadEnv = orig })
}

func TestCheckCommandPrintsReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<div><button>Coming Soon</button></div>`))
	}))
	defer srv.Close()

	stubEnv(t, config.Config{
		Scheduler: config.SchedulerConfig{IntervalMinutes: 30, Products: []string{"5080"}, Timezone: "UTC"},
		Fetch:     config.FetchConfig{UserAgent: "Mozilla/5.0", Timeout: 2 * time.Second},
		Products: config.ProductsConfig{Catalog: []stock.Product{
			{ID: "5080", Name: "RTX 5080", URL: srv.URL},
			{ID: "5090", Name: "RTX 5090", URL: srv.URL},
		}},
	})

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"check", "--products", "both"})
	require.NoError(t, root.Execute())

	require.Contains(t, out.String(), "The RTX 5080 is coming soon.")
	require.Contains(t, out.String(), "The RTX 5090 is coming soon.")
	require.Contains(t, out.String(), "PRODUCT")
}

func TestCheckCommandRejectsUnknownProduct(t *testing.T) {
	stubEnv(t, config.Config{
		Products: config.ProductsConfig{Catalog: []stock.Product{{ID: "5080", URL: "http://example.invalid"}}},
	})

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--products", "4090"})
	err := root.Execute()
	require.ErrorIs(t, err, stock.ErrUnknownToken)
}

func TestRootFailsWhenConfigLoadFails(t *testing.T) {
	orig := loadEnv
	loadEnv = func(string) (*env, error) { return nil, errors.New("boom") }
	t.Cleanup(func() { loadEnv = orig })

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check"})
	require.EqualError(t, root.Execute(), "boom")
}

func TestPrintReport(t *testing.T) {
	t.Parallel()
	report := monitor.Report{
		Results: []monitor.Result{
			{Product: stock.Product{ID: "5080", Name: "RTX 5080"}, Status: stock.SoldOut, Duration: 1500 * time.Millisecond},
			{Product: stock.Product{ID: "5090", Name: "RTX 5090"}, Err: &stock.StatusError{URL: "u", StatusCode: http.StatusServiceUnavailable}},
		},
	}
	var out bytes.Buffer
	require.NoError(t, printReport(&out, report))
	require.Contains(t, out.String(), "RTX 5080")
	require.Contains(t, out.String(), "HTTP 503 Service Unavailable")
	require.NotContains(t, out.String(), "halted")
}
