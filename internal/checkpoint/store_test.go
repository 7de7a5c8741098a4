package checkpoint_test

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/born-ml/gradstate/internal/checkpoint"
	"github.com/born-ml/gradstate/internal/nn"
	"github.com/born-ml/gradstate/internal/optim"
)

func newUpdater(kind optim.Kind) (*nn.Graph, *optim.GraphUpdater) {
	g, err := nn.ReferenceConvNet(8)
	Expect(err).NotTo(HaveOccurred())

	u, err := optim.NewGraphUpdater(g.Layers(), optim.Config{Updater: kind})
	Expect(err).NotTo(HaveOccurred())
	return g, u
}

func stepOnce(g *nn.Graph, u *optim.GraphUpdater, seed int64) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic gradients
	grads := optim.Gradients{}
	for _, l := range g.Layers() {
		for _, p := range l.Parameters() {
			if grads[l.Name()] == nil {
				grads[l.Name()] = map[string][]float32{}
			}
			grad := make([]float32, p.Size())
			for i := range grad {
				grad[i] = float32(rng.NormFloat64())
			}
			grads[l.Name()][p.Name()] = grad
		}
	}
	Expect(u.Step(grads)).To(Succeed())
}

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *checkpoint.Store
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		store, err = checkpoint.Open(filepath.Join(GinkgoT().TempDir(), "state.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	It("should start with no runs", func() {
		runs, err := store.Runs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(BeEmpty())

		_, err = store.Latest(ctx)
		Expect(err).To(MatchError(checkpoint.ErrRunNotFound))
	})

	It("should save and load a Nesterov state", func() {
		g, u := newUpdater(optim.KindNesterovs)
		stepOnce(g, u, 1)

		id, err := store.Save(ctx, "epoch-1", u)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("epoch-1"))

		_, restored := newUpdater(optim.KindNesterovs)
		Expect(store.Load(ctx, id, restored)).To(Succeed())
		Expect(restored.StateDict()).To(Equal(u.StateDict()))
		Expect(restored.Validate()).To(Succeed())
	})

	It("should keep zero-slot rules sized", func() {
		g, u := newUpdater(optim.KindSGD)
		stepOnce(g, u, 2)

		id, err := store.Save(ctx, "", u)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())

		_, restored := newUpdater(optim.KindSGD)
		Expect(store.Load(ctx, id, restored)).To(Succeed())

		lu, ok := restored.ForLayer("l6_out")
		Expect(ok).To(BeTrue())
		Expect(lu.State().SizeOf("W")).To(Equal(1280))
		Expect(lu.State().SizeOf("b")).To(Equal(10))
	})

	It("should list runs and report the latest", func() {
		g, u := newUpdater(optim.KindAdam)
		stepOnce(g, u, 3)

		_, err := store.Save(ctx, "a", u)
		Expect(err).NotTo(HaveOccurred())
		_, err = store.Save(ctx, "b", u)
		Expect(err).NotTo(HaveOccurred())

		runs, err := store.Runs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(2))
		Expect(runs[0].Updater).To(Equal("adam"))
		// Adam keeps m and v for W and b of four layers.
		Expect(runs[0].Entries).To(Equal(16))

		latest, err := store.Latest(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(latest.ID).To(Equal("b"))
	})

	It("should replace a run saved twice", func() {
		g, u := newUpdater(optim.KindNesterovs)
		stepOnce(g, u, 4)
		_, err := store.Save(ctx, "run", u)
		Expect(err).NotTo(HaveOccurred())

		stepOnce(g, u, 5)
		_, err = store.Save(ctx, "run", u)
		Expect(err).NotTo(HaveOccurred())

		runs, err := store.Runs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))

		_, restored := newUpdater(optim.KindNesterovs)
		Expect(store.Load(ctx, "run", restored)).To(Succeed())
		lu, _ := restored.ForLayer("l0_cnn")
		Expect(lu.State().Steps("W")).To(Equal(2))
	})

	It("should refuse to load into a different updater", func() {
		g, u := newUpdater(optim.KindNesterovs)
		stepOnce(g, u, 6)
		_, err := store.Save(ctx, "run", u)
		Expect(err).NotTo(HaveOccurred())

		_, adam := newUpdater(optim.KindAdam)
		Expect(store.Load(ctx, "run", adam)).To(MatchError(checkpoint.ErrUpdaterMismatch))
	})

	It("should refuse state saved from a different network", func() {
		g, u := newUpdater(optim.KindNesterovs)
		stepOnce(g, u, 7)
		_, err := store.Save(ctx, "run", u)
		Expect(err).NotTo(HaveOccurred())

		wide, err := nn.ReferenceConvNet(4)
		Expect(err).NotTo(HaveOccurred())
		other, err := optim.NewGraphUpdater(wide.Layers(), optim.Config{Updater: optim.KindNesterovs})
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Load(ctx, "run", other)).To(MatchError(optim.ErrSizeMismatch))
	})

	It("should report unknown runs", func() {
		_, u := newUpdater(optim.KindNesterovs)
		Expect(store.Load(ctx, "missing", u)).To(MatchError(checkpoint.ErrRunNotFound))
		Expect(store.Delete(ctx, "missing")).To(MatchError(checkpoint.ErrRunNotFound))
	})

	It("should delete runs", func() {
		g, u := newUpdater(optim.KindMomentum)
		stepOnce(g, u, 8)
		_, err := store.Save(ctx, "run", u)
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Delete(ctx, "run")).To(Succeed())

		var n int
		Expect(store.DB().QueryRow("SELECT COUNT(*) FROM gradstate_accumulators").Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
	})
})

var _ = Describe("OpenDSN", func() {
	It("should reject unknown drivers", func() {
		_, err := checkpoint.OpenDSN("postgres", "host=localhost")
		Expect(err).To(HaveOccurred())
	})

	It("should name blank paths with an xid", func() {
		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
		DeferCleanup(os.Chdir, wd)

		store, err := checkpoint.Open("")
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		Expect(store.Path()).To(MatchRegexp(`^gradstate_[0-9a-v]{20}\.sqlite3$`))
	})
})
