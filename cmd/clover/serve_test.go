package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
)

func memoryConfig() *config.Config {
	return &config.Config{
		AppName:             "clover-test",
		Version:             "test",
		Port:                8080,
		StorageDriver:       config.StorageDriverMemory,
		LockDriver:          config.LockDriverLocal,
		StartupMaxAttempts:  1,
		ScanMaxClusters:     50,
		ScanMaxTargeted:     5,
		SuggestionBulkLimit: 200,
	}
}

func TestServer_MemoryStorage(t *testing.T) {
	cfg := memoryConfig()
	a := newApp(cfg, logging.Noop(), appOptions{external: true})
	require.NoError(t, a.start(context.Background()))
	t.Cleanup(func() { _ = a.stop(context.Background()) })

	service, err := a.service()
	require.NoError(t, err)
	t.Cleanup(func() { _ = service.Shutdown(context.Background()) })

	e := newServer(cfg, logging.Noop(), service, a.checker)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/duplicates/contacts/scan", nil)
	req.Header.Set(middleware.HeaderOrgID, "org-1")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServe_InvalidThresholdsPath(t *testing.T) {
	cfg := memoryConfig()
	cfg.MatchThresholdsPath = t.TempDir() + "/missing.yaml"

	a := newApp(cfg, logging.Noop(), appOptions{})
	_, err := a.service()
	require.Error(t, err)
}

func TestPrintScan(t *testing.T) {
	var buf bytes.Buffer
	printScan(&buf, &models.ScanResult{
		Kind:         models.EntityKindContact,
		TotalScanned: 3,
		Clusters: []models.Cluster{{
			Entities: []models.Entity{
				{ID: "c1", Name: "Jake Ryan"},
				{ID: "c2", Name: "Ryan Jake"},
			},
			Confidence: 85,
			Reason:     "Name match (swapped first/last)",
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "3 records scanned")
	assert.Contains(t, out, "Jake Ryan (c1)")
	assert.Contains(t, out, "Ryan Jake (c2)")
	assert.Contains(t, out, "85%")

	buf.Reset()
	printScan(&buf, &models.ScanResult{Kind: models.EntityKindCompany})
	assert.Contains(t, buf.String(), "No duplicates found")
}
