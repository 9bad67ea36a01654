package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
	"github.com/san-kum/tanksim/internal/integrators"
	"github.com/san-kum/tanksim/internal/reactor"
	"github.com/san-kum/tanksim/internal/sim"
	"github.com/san-kum/tanksim/internal/trajectory"
)

func newSimulator(name string) *sim.Simulator {
	integ, err := integrators.New(name)
	Expect(err).NotTo(HaveOccurred())
	solver, err := integrators.NewSolver(integ, dynamo.DefaultConfig())
	Expect(err).NotTo(HaveOccurred())
	return sim.New(reactor.NewCSTR(), solver)
}

func column(traj *trajectory.Trajectory, name string) []float64 {
	out, err := traj.Column(name)
	Expect(err).NotTo(HaveOccurred())
	return out
}

type countingObserver struct{ calls int }

func (o *countingObserver) OnStep(x dynamo.State, u dynamo.Control, t float64) { o.calls++ }

var _ = Describe("Simulator", func() {
	var (
		ctx  context.Context
		grid *sim.TimeGrid
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		grid, err = sim.Linspace(0, 10, 100)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with the reference forcing", func() {
		var (
			traj  *trajectory.Trajectory
			sched *forcing.Schedule
		)

		BeforeEach(func() {
			var err error
			sched, err = forcing.Reference(100)
			Expect(err).NotTo(HaveOccurred())

			res, err := newSimulator("rk45").Run(ctx, dynamo.State{1.0, 0.5, 350.0}, grid, sched)
			Expect(err).NotTo(HaveOccurred())
			traj = res.Trajectory
		})

		It("records one row per grid point", func() {
			Expect(traj.Len()).To(Equal(100))
			Expect(traj.Times()).To(Equal(grid.Points()))
		})

		It("stores the initial condition in row 0", func() {
			Expect(traj.Row(0).State()).To(Equal(dynamo.State{1.0, 0.5, 350.0}))
		})

		It("records the forcing active going into each step", func() {
			for i := 0; i < traj.Len(); i++ {
				want, err := sched.At(i)
				Expect(err).NotTo(HaveOccurred())
				Expect(traj.Row(i).Inputs()).To(Equal(want), "row %d", i)
			}
		})

		It("reaches the analytic final volume", func() {
			// 50 intervals at +0.2 L/min, then 49 at +0.1 L/min.
			want := 1.0 + (50*0.2+49*0.1)*10.0/99.0
			final, ok := traj.Final()
			Expect(ok).To(BeTrue())
			Expect(final.Volume).To(BeNumerically("~", want, 1e-9))
			Expect(final.Volume).To(BeNumerically("~", 1+149.0/99.0, 1e-9))
		})

		It("matches the analytic concentration before the first switch", func() {
			// With V = 1 + 0.2t and constant feed,
			// Caf - Ca = (Caf - Ca0) * (V0/V)^(qf/0.2).
			for _, i := range []int{5, 10, 29} {
				row := traj.Row(i)
				want := 1.0 - 0.5*math.Pow(1.0/row.Volume, 5.2/0.2)
				Expect(row.Concentration).To(BeNumerically("~", want, 1e-7), "row %d", i)
			}
		})

		It("keeps the state continuous across every forcing switch", func() {
			model := reactor.NewCSTR()
			dt := grid.At(1) - grid.At(0)
			for _, k := range sched.Switches() {
				before := traj.Row(k)
				after := traj.Row(k + 1)
				rate, err := model.Derive(before.State(), before.Inputs().Control(), before.T)
				Expect(err).NotTo(HaveOccurred())

				delta := after.State().Sub(before.State())
				for j := range delta {
					limit := math.Abs(rate[j])*dt*(1+1e-6) + 1e-9
					Expect(math.Abs(delta[j])).To(BeNumerically("<=", limit), "switch %d component %d", k, j)
				}
			}
		})
	})

	It("holds the volume when inflow equals outflow", func() {
		sched, err := forcing.NewSchedule(100,
			forcing.Constant(5), forcing.Constant(5),
			forcing.StepAt(1, 40, 0.2), forcing.StepAt(300, 60, 340))
		Expect(err).NotTo(HaveOccurred())

		res, err := newSimulator("rk45").Run(ctx, dynamo.State{2.0, 0.5, 350.0}, grid, sched)
		Expect(err).NotTo(HaveOccurred())
		for _, v := range column(res.Trajectory, trajectory.ColVolume) {
			Expect(v).To(BeNumerically("~", 2.0, 1e-12))
		}
	})

	It("drives the concentration to the feed at steady flow", func() {
		sched, err := forcing.NewSchedule(100,
			forcing.Constant(5), forcing.Constant(5), forcing.Constant(0.8), forcing.Constant(310))
		Expect(err).NotTo(HaveOccurred())

		res, err := newSimulator("rk45").Run(ctx, dynamo.State{1.0, 0.0, 350.0}, grid, sched)
		Expect(err).NotTo(HaveOccurred())
		final, _ := res.Trajectory.Final()
		Expect(final.Concentration).To(BeNumerically("~", 0.8, 1e-6))
		Expect(final.Temperature).To(BeNumerically("~", 310, 1e-4))
	})

	DescribeTable("conserves volume under constant forcing",
		func(backend string, qf, q float64) {
			sched, err := forcing.NewSchedule(100,
				forcing.Constant(qf), forcing.Constant(q), forcing.Constant(1), forcing.Constant(300))
			Expect(err).NotTo(HaveOccurred())

			res, err := newSimulator(backend).Run(ctx, dynamo.State{3.0, 0.2, 320.0}, grid, sched)
			Expect(err).NotTo(HaveOccurred())
			for _, row := range res.Trajectory.Rows() {
				Expect(row.Volume).To(BeNumerically("~", 3.0+(qf-q)*row.T, 1e-8))
			}
		},
		Entry("rk45 filling", "rk45", 3.0, 1.0),
		Entry("rk4 filling", "rk4", 3.0, 1.0),
		Entry("euler filling", "euler", 3.0, 1.0),
		Entry("rk45 draining", "rk45", 1.0, 1.2),
	)

	It("rejects an empty tank on the first evaluation", func() {
		sched, err := forcing.Reference(100)
		Expect(err).NotTo(HaveOccurred())

		res, err := newSimulator("rk45").Run(ctx, dynamo.State{0, 0.5, 350.0}, grid, sched)
		Expect(res).To(BeNil())
		Expect(errors.Is(err, dynamo.ErrSingularState)).To(BeTrue())
		Expect(errors.Is(err, dynamo.ErrNonConvergence)).To(BeFalse())

		var simErr *dynamo.SimulationError
		Expect(errors.As(err, &simErr)).To(BeTrue())
		Expect(simErr.Step).To(Equal(0))
	})

	It("fails the run when the tank drains dry", func() {
		sched, err := forcing.NewSchedule(100,
			forcing.Constant(4), forcing.Constant(5), forcing.Constant(1), forcing.Constant(300))
		Expect(err).NotTo(HaveOccurred())

		// V = 1 - t reaches zero inside the tenth interval.
		res, err := newSimulator("rk45").Run(ctx, dynamo.State{1.0, 0.5, 350.0}, grid, sched)
		Expect(res).To(BeNil())
		Expect(errors.Is(err, dynamo.ErrNonConvergence)).To(BeTrue())

		var simErr *dynamo.SimulationError
		Expect(errors.As(err, &simErr)).To(BeTrue())
		Expect(simErr.Step).To(Equal(9))
		Expect(simErr.State[reactor.Volume]).To(BeNumerically(">", 0))
	})

	It("rejects a schedule that does not match the grid", func() {
		sched, err := forcing.Reference(80)
		Expect(err).NotTo(HaveOccurred())

		_, err = newSimulator("rk45").Run(ctx, dynamo.State{1.0, 0.5, 350.0}, grid, sched)
		Expect(err).To(MatchError(dynamo.ErrInvalidGrid))
	})

	It("rejects an initial state of the wrong size", func() {
		sched, err := forcing.Reference(100)
		Expect(err).NotTo(HaveOccurred())

		_, err = newSimulator("rk45").Run(ctx, dynamo.State{1.0, 0.5}, grid, sched)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("stops on a canceled context", func() {
		sched, err := forcing.Reference(100)
		Expect(err).NotTo(HaveOccurred())
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = newSimulator("rk45").Run(canceled, dynamo.State{1.0, 0.5, 350.0}, grid, sched)
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(err).To(MatchError(context.Canceled))
	})

	It("does not modify the caller's initial state", func() {
		sched, err := forcing.Reference(100)
		Expect(err).NotTo(HaveOccurred())
		x0 := dynamo.State{1.0, 0.5, 350.0}

		_, err = newSimulator("rk45").Run(ctx, x0, grid, sched)
		Expect(err).NotTo(HaveOccurred())
		Expect(x0).To(Equal(dynamo.State{1.0, 0.5, 350.0}))
	})

	It("notifies observers at every grid point and reports solver work", func() {
		sched, err := forcing.Reference(100)
		Expect(err).NotTo(HaveOccurred())
		s := newSimulator("rk45")
		obs := &countingObserver{}
		s.AddObserver(obs)

		res, err := s.Run(ctx, dynamo.State{1.0, 0.5, 350.0}, grid, sched)
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.calls).To(Equal(100))
		Expect(res.Stats.Steps).To(BeNumerically(">=", 99))
		Expect(res.Metrics).To(HaveKeyWithValue(sim.MetricSolverEvaluations, float64(res.Stats.Evaluations)))
	})
})

var _ = Describe("Ensemble", func() {
	It("runs every solver and keeps the outcomes in order", func() {
		grid, err := sim.Linspace(0, 10, 100)
		Expect(err).NotTo(HaveOccurred())
		sched, err := forcing.Reference(100)
		Expect(err).NotTo(HaveOccurred())

		ens := sim.NewEnsemble(reactor.NewCSTR(), nil, nil)
		for _, name := range integrators.Names() {
			integ, err := integrators.New(name)
			Expect(err).NotTo(HaveOccurred())
			cfg := dynamo.DefaultConfig()
			cfg.Rtol, cfg.Atol = 1e-6, 1e-8
			cfg.MaxSteps = 1_000_000
			solver, err := integrators.NewSolver(integ, cfg)
			Expect(err).NotTo(HaveOccurred())
			ens.Add(name, solver)
		}

		outcomes := ens.Run(context.Background(), dynamo.State{1.0, 0.5, 350.0}, grid, sched)
		Expect(outcomes).To(HaveLen(3))
		for i, name := range integrators.Names() {
			Expect(outcomes[i].Name).To(Equal(name))
			Expect(outcomes[i].Err).NotTo(HaveOccurred())
			final, _ := outcomes[i].Result.Trajectory.Final()
			Expect(final.Volume).To(BeNumerically("~", 1+149.0/99.0, 1e-6))
		}
	})
})
