// Package monitor serves a live graph updater over HTTP for inspection.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/born-ml/gradstate/internal/checkpoint"
	"github.com/born-ml/gradstate/internal/optim"
)

// Monitor exposes the state of a GraphUpdater as a small JSON API.
//
//	GET /api/layers           summary of every layer
//	GET /api/layer/{name}     one layer, serialized with goseth
//	GET /api/validate         state/parameter consistency check
//	GET /api/hyper            current hyperparameters
//	PUT /api/hyper            change learning rate and momentum
//	GET /api/runs             checkpoints in the attached store
//	GET /api/resource         process CPU and memory
//	GET /api/profile          one CPU profile, parsed
type Monitor struct {
	updater         *optim.GraphUpdater
	store           *checkpoint.Store
	portNumber      int
	profileDuration time.Duration
	logger          *slog.Logger

	mu     sync.Mutex
	server *http.Server
}

// NewMonitor creates a Monitor for u.
func NewMonitor(u *optim.GraphUpdater) *Monitor {
	return &Monitor{
		updater:         u,
		profileDuration: time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000
// select a random free port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port", "port", portNumber)
		portNumber = 0
	}
	m.portNumber = portNumber
	return m
}

// WithStore attaches a checkpoint store for /api/runs.
func (m *Monitor) WithStore(s *checkpoint.Store) *Monitor {
	m.store = s
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// Handler returns the API router.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/layers", m.listLayers).Methods(http.MethodGet)
	r.HandleFunc("/api/layer/{name}", m.layerDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/validate", m.validate).Methods(http.MethodGet)
	r.HandleFunc("/api/hyper", m.getHyper).Methods(http.MethodGet)
	r.HandleFunc("/api/hyper", m.setHyper).Methods(http.MethodPut)
	r.HandleFunc("/api/runs", m.listRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	return r
}

// StartServer listens on the configured port and serves in the background.
// It returns the base URL of the server.
func (m *Monitor) StartServer() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return "", errors.New("monitor: server already started")
	}

	listener, err := net.Listen("tcp", "localhost:"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitor: listen: %w", err)
	}

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info("monitoring updater", "url", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor server stopped", "err", err)
		}
	}()

	return url, nil
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server == nil {
		return nil
	}
	err := m.server.Shutdown(ctx)
	m.server = nil
	return err
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Error("monitor: write response", "err", err)
	}
}

func (m *Monitor) fail(w http.ResponseWriter, status int, err error) {
	m.logger.Warn("monitor request failed", "status", status, "err", err)
	http.Error(w, err.Error(), status)
}

func (m *Monitor) listLayers(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.updater.Summary())
}

func (m *Monitor) layerDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	summary, ok := m.updater.SummaryOf(name)
	if !ok {
		m.fail(w, http.StatusNotFound, fmt.Errorf("layer %q not found", name))
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&summary)
	serializer.SetMaxDepth(2)
	if err := serializer.Serialize(w); err != nil {
		m.logger.Error("monitor: serialize layer", "layer", name, "err", err)
	}
}

type validateRsp struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (m *Monitor) validate(w http.ResponseWriter, _ *http.Request) {
	rsp := validateRsp{OK: true}
	if err := m.updater.Validate(); err != nil {
		rsp = validateRsp{OK: false, Error: err.Error()}
	}
	m.writeJSON(w, rsp)
}

type hyperMsg struct {
	Updater  string   `json:"updater"`
	LR       *float32 `json:"lr,omitempty"`
	Momentum *float32 `json:"momentum,omitempty"`
}

func (m *Monitor) hyper() hyperMsg {
	h := m.updater.Hyper()
	return hyperMsg{Updater: m.updater.Kind().String(), LR: &h.LR, Momentum: &h.Momentum}
}

func (m *Monitor) getHyper(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.hyper())
}

func (m *Monitor) setHyper(w http.ResponseWriter, r *http.Request) {
	var req hyperMsg
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.fail(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if req.LR != nil && *req.LR <= 0 {
		m.fail(w, http.StatusBadRequest, fmt.Errorf("learning rate must be positive, got %v", *req.LR))
		return
	}
	if req.Momentum != nil && (*req.Momentum < 0 || *req.Momentum >= 1) {
		m.fail(w, http.StatusBadRequest, fmt.Errorf("momentum must be in [0, 1), got %v", *req.Momentum))
		return
	}

	if req.LR != nil {
		m.updater.SetLR(*req.LR)
	}
	if req.Momentum != nil {
		m.updater.SetMomentum(*req.Momentum)
	}
	m.logger.Info("hyperparameters changed", "lr", m.updater.GetLR(), "momentum", m.updater.Hyper().Momentum)

	m.writeJSON(w, m.hyper())
}

func (m *Monitor) listRuns(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		m.writeJSON(w, []checkpoint.Run{})
		return
	}

	runs, err := m.store.Runs(r.Context())
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []checkpoint.Run{}
	}
	m.writeJSON(w, runs)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, resourceRsp{CPUPercent: cpuPercent, MemorySize: memory.RSS})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.fail(w, http.StatusConflict, err)
		return
	}

	select {
	case <-time.After(m.profileDuration):
	case <-r.Context().Done():
	}
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, prof)
}
