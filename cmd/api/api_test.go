package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sys/unix"
	"microvmd.zzh.net/internal/config"
	"microvmd.zzh.net/internal/vmm"
)

func newTestApplication(t *testing.T) *application {
	t.Helper()

	app := &application{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		logLevel: new(slog.LevelVar),
		vmm:      vmm.New("test-instance"),
		diag:     newDiagnostics(),
	}
	app.applyConfig(config.Config{
		ServerAddress: ":0",
		Env:           "test",
		InstanceID:    "test-instance",
	})

	t.Cleanup(app.diag.close)

	return app
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	if err != nil {
		t.Fatalf("decoding response body: %v", err)
	}

	return body
}

func TestInstanceInfoHandler(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	rr := doRequest(t, h, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: expected %d, got %d", http.StatusOK, rr.Code)
	}

	body := decodeBody(t, rr)
	instance := body["instance"].(map[string]any)
	if instance["id"] != "test-instance" {
		t.Fatalf("id: expected test-instance, got %v", instance["id"])
	}
	if instance["state"] != "Not started" {
		t.Fatalf("state: expected Not started, got %v", instance["state"])
	}
}

func TestDriveLifecycle(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	put := `{
		"drive_id": "rootfs",
		"path_on_host": "/img/rootfs.ext4",
		"is_root_device": true,
		"is_read_only": false,
		"rate_limiter": {
			"ops": {"size": 500, "refill_time": 1000}
		}
	}`

	rr := doRequest(t, h, http.MethodPut, "/drives/rootfs", put)
	if rr.Code != http.StatusCreated {
		t.Fatalf("put status: expected %d, got %d (%s)", http.StatusCreated, rr.Code, rr.Body)
	}

	rr = doRequest(t, h, http.MethodPut, "/actions", `{"action_type": "InstanceStart"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("start status: expected %d, got %d (%s)", http.StatusOK, rr.Code, rr.Body)
	}

	patch := `{
		"rate_limiter": {
			"bandwidth": {"size": 2097152, "one_time_burst": 2048, "refill_time": 2000}
		}
	}`

	rr = doRequest(t, h, http.MethodPatch, "/drives/rootfs", patch)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status: expected %d, got %d (%s)", http.StatusOK, rr.Code, rr.Body)
	}

	drive, err := app.vmm.Drive("rootfs")
	if err != nil {
		t.Fatal(err)
	}

	cfg := drive.Config.RateLimiter
	if cfg.Bandwidth == nil || cfg.Bandwidth.Size != 2097152 {
		t.Fatalf("bandwidth axis not replaced: %+v", cfg.Bandwidth)
	}
	if cfg.Bandwidth.OneTimeBurst == nil || *cfg.Bandwidth.OneTimeBurst != 2048 {
		t.Fatalf("bandwidth burst: expected 2048, got %v", cfg.Bandwidth.OneTimeBurst)
	}
	if cfg.Ops == nil || cfg.Ops.Size != 500 {
		t.Fatalf("ops axis must survive the patch: %+v", cfg.Ops)
	}
	if drive.Limiter == nil || drive.Limiter.Bandwidth() == nil {
		t.Fatal("expected a rebuilt live limiter with a bandwidth bucket")
	}
}

func TestPutDriveRejectsUnknownField(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	body := `{"drive_id": "rootfs", "path_on_host": "/img/rootfs.ext4", "rate_limiter": {"ops": {"size": 1, "capacity": 9}}}`

	rr := doRequest(t, h, http.MethodPut, "/drives/rootfs", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: expected %d, got %d (%s)", http.StatusBadRequest, rr.Code, rr.Body)
	}
}

func TestPatchDriveBeforeBoot(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	put := `{"drive_id": "rootfs", "path_on_host": "/img/rootfs.ext4"}`
	rr := doRequest(t, h, http.MethodPut, "/drives/rootfs", put)
	if rr.Code != http.StatusCreated {
		t.Fatalf("put status: expected %d, got %d", http.StatusCreated, rr.Code)
	}

	patch := `{"rate_limiter": {"ops": {"size": 1, "refill_time": 1}}}`
	rr = doRequest(t, h, http.MethodPatch, "/drives/rootfs", patch)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("patch status: expected %d, got %d (%s)", http.StatusBadRequest, rr.Code, rr.Body)
	}
}

func TestPutMachineConfigValidation(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	rr := doRequest(t, h, http.MethodPut, "/machine-config", `{"vcpu_count": 0, "mem_size_mib": 128}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: expected %d, got %d (%s)", http.StatusUnprocessableEntity, rr.Code, rr.Body)
	}

	rr = doRequest(t, h, http.MethodPut, "/machine-config", `{"vcpu_count": 2, "mem_size_mib": 256, "smt": true}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: expected %d, got %d (%s)", http.StatusCreated, rr.Code, rr.Body)
	}

	if got := app.vmm.MachineConfig().VCPUCount; got != 2 {
		t.Fatalf("vcpu count: expected 2, got %d", got)
	}
}

func TestPutVsockValidation(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	rr := doRequest(t, h, http.MethodPut, "/vsock", `{"vsock_id": "vsock0", "guest_cid": 2, "uds_path": "/tmp/v.sock"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: expected %d, got %d (%s)", http.StatusUnprocessableEntity, rr.Code, rr.Body)
	}
}

func TestActionsUnknownAction(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	rr := doRequest(t, h, http.MethodPut, "/actions", `{"action_type": "SelfDestruct"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: expected %d, got %d (%s)", http.StatusUnprocessableEntity, rr.Code, rr.Body)
	}
}

func TestAuthenticate(t *testing.T) {
	app := newTestApplication(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("swordfish"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	app.applyConfig(config.Config{
		ServerAddress: ":0",
		Env:           "test",
		InstanceID:    "test-instance",
		APITokenHash:  string(hash),
	})

	h := app.routes()

	rr := doRequest(t, h, http.MethodGet, "/", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer swordfish")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: expected %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestPutLoggerMissingFIFO(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	body := `{"log_path": "` + filepath.Join(t.TempDir(), "missing.fifo") + `"}`

	rr := doRequest(t, h, http.MethodPut, "/logger", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: expected %d, got %d (%s)", http.StatusBadRequest, rr.Code, rr.Body)
	}
}

func TestMetricsFlow(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	fifo := filepath.Join(t.TempDir(), "metrics.fifo")
	err := unix.Mkfifo(fifo, 0o600)
	if err != nil {
		t.Fatal(err)
	}

	rr := doRequest(t, h, http.MethodPut, "/metrics", `{"metrics_path": "`+fifo+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("put status: expected %d, got %d (%s)", http.StatusCreated, rr.Code, rr.Body)
	}

	rr = doRequest(t, h, http.MethodPut, "/actions", `{"action_type": "FlushMetrics"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("flush status: expected %d, got %d (%s)", http.StatusOK, rr.Code, rr.Body)
	}

	fd, err := unix.Open(fifo, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fd)

	buf := make([]byte, 4096)
	n, err := unix.Read(fd, buf)
	if err != nil {
		t.Fatal(err)
	}

	var record map[string]any
	err = json.Unmarshal(buf[:n], &record)
	if err != nil {
		t.Fatalf("metrics record is not valid JSON: %v (%q)", err, buf[:n])
	}
	if record["instance_id"] != "test-instance" {
		t.Fatalf("instance_id: expected test-instance, got %v", record["instance_id"])
	}
}

func TestFlushMetricsWithoutDestination(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	rr := doRequest(t, h, http.MethodPut, "/actions", `{"action_type": "FlushMetrics"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: expected %d, got %d (%s)", http.StatusBadRequest, rr.Code, rr.Body)
	}
}
