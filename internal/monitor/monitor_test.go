package monitor_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/born-ml/gradstate/internal/checkpoint"
	"github.com/born-ml/gradstate/internal/monitor"
	"github.com/born-ml/gradstate/internal/nn"
	"github.com/born-ml/gradstate/internal/optim"
)

var _ = Describe("Monitor", func() {
	var (
		u       *optim.GraphUpdater
		m       *monitor.Monitor
		handler http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	BeforeEach(func() {
		g, err := nn.ReferenceConvNet(8)
		Expect(err).NotTo(HaveOccurred())
		u, err = optim.NewGraphUpdater(g.Layers(), optim.Config{
			Updater:  optim.KindNesterovs,
			Momentum: 0.9,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Init()).To(Succeed())

		m = monitor.NewMonitor(u).WithProfileDuration(10 * time.Millisecond)
		handler = m.Handler()
	})

	It("should list layer summaries", func() {
		rec := get("/api/layers")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var summaries []optim.LayerSummary
		Expect(json.Unmarshal(rec.Body.Bytes(), &summaries)).To(Succeed())
		Expect(summaries).To(HaveLen(7))
		Expect(summaries[0].Layer).To(Equal("l0_cnn"))
		Expect(summaries[0].State).To(Equal([]optim.NamedSize{{Name: "W", Size: 108}, {Name: "b", Size: 12}}))
		Expect(summaries[1].State).To(BeEmpty())
	})

	It("should serialize one layer", func() {
		rec := get("/api/layer/l6_out")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("l6_out"))
	})

	It("should return 404 for unknown layers", func() {
		rec := get("/api/layer/l9_fc")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should report drift", func() {
		rec := get("/api/validate")
		Expect(rec.Body.String()).To(ContainSubstring(`"ok":true`))

		lu, _ := u.ForLayer("l1_max")
		Expect(lu.State().Ensure("W", 4)).To(Succeed())

		rec = get("/api/validate")
		Expect(rec.Body.String()).To(ContainSubstring(`"ok":false`))
		Expect(rec.Body.String()).To(ContainSubstring("orphan state"))
	})

	It("should get and set hyperparameters", func() {
		rec := get("/api/hyper")
		Expect(rec.Body.String()).To(ContainSubstring(`"updater":"nesterovs"`))

		req := httptest.NewRequest(http.MethodPut, "/api/hyper", strings.NewReader(`{"lr":0.5,"momentum":0.25}`))
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(u.GetLR()).To(BeNumerically("==", 0.5))
		Expect(u.Hyper().Momentum).To(BeNumerically("==", 0.25))
	})

	It("should reject invalid hyperparameters", func() {
		for _, body := range []string{`{"lr":-1}`, `{"momentum":1.5}`, `not json`} {
			req := httptest.NewRequest(http.MethodPut, "/api/hyper", strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest), body)
		}
		Expect(u.GetLR()).To(BeNumerically("~", 0.01, 1e-7))
	})

	It("should list checkpoint runs", func() {
		Expect(get("/api/runs").Body.String()).To(Equal("[]\n"))

		store, err := checkpoint.Open(filepath.Join(GinkgoT().TempDir(), "runs.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
		_, err = store.Save(context.Background(), "first", u)
		Expect(err).NotTo(HaveOccurred())

		handler = m.WithStore(store).Handler()
		var runs []checkpoint.Run
		Expect(json.Unmarshal(get("/api/runs").Body.Bytes(), &runs)).To(Succeed())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].ID).To(Equal("first"))
	})

	It("should report resources", func() {
		rec := get("/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp struct {
			MemorySize uint64 `json:"memory_size"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a profile", func() {
		rec := get("/api/profile")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("SampleType"))
	})

	It("should serve over HTTP", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(m.Shutdown, context.Background())

		_, err = m.StartServer()
		Expect(err).To(HaveOccurred())

		rsp, err := http.Get(url + "/api/hyper")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()
		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("nesterovs"))
	})
})
