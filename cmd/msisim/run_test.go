package main

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/msisim/datarecording"
	"github.com/sarchlab/msisim/mem/coherence/hierarchy"
	"github.com/sarchlab/msisim/monitoring"
)

func smallRun() *runOptions {
	return &runOptions{
		numCores:   2,
		accesses:   50,
		seed:       3,
		storeRatio: 0.5,
		maxAddress: 1 << 10,
		maxPending: 2,
		l1Sets:     4,
		l1Ways:     2,
		dirSets:    4,
		dirWays:    2,
		jitter:     3,
	}
}

var _ = Describe("run", func() {
	It("should pass a small contended workload", func() {
		opts := smallRun()
		opts.checkEachEvent = true

		Expect(run(opts)).To(Succeed())
	})

	It("should pass with exclusive first touch", func() {
		opts := smallRun()
		opts.exclusive = true

		Expect(run(opts)).To(Succeed())
	})

	It("should reject a run without cores", func() {
		opts := smallRun()
		opts.numCores = 0

		Expect(run(opts)).NotTo(Succeed())
	})

	It("should record into a SQLite file", func() {
		opts := smallRun()
		opts.sqlitePath = filepath.Join(GinkgoT().TempDir(), "run")

		Expect(run(opts)).To(Succeed())
		_, err := os.Stat(opts.sqlitePath + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())

		reader, err := datarecording.NewReader(opts.sqlitePath + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		reader.MapTable(datarecording.TransitionTable,
			datarecording.TransitionEntry{})
		reader.MapTable(datarecording.MsgTable, datarecording.MsgEntry{})

		_, numTransitions, err := reader.Query(context.Background(),
			datarecording.TransitionTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(numTransitions).To(BeNumerically(">", 0))

		_, numMsgs, err := reader.Query(context.Background(),
			datarecording.MsgTable, datarecording.QueryParams{
				Where: "Phase = ?",
				Args:  []any{"send"},
			})
		Expect(err).NotTo(HaveOccurred())
		Expect(numMsgs).To(BeNumerically(">", 0))
		Expect(reader.Close()).To(Succeed())
	})

	It("should refuse to overwrite a transition CSV", func() {
		opts := smallRun()
		opts.transitionsCSV = filepath.Join(GinkgoT().TempDir(), "t.csv")
		Expect(os.WriteFile(opts.transitionsCSV, nil, 0o644)).To(Succeed())

		Expect(run(opts)).NotTo(Succeed())
	})
})

var _ = Describe("progressHook", func() {
	It("should track accesses from begin to completion", func() {
		sys := hierarchy.MakeBuilder().Build("Sys")
		bar := &monitoring.ProgressBar{Total: 3}
		sys.AcceptHook(&progressHook{bar: bar})

		sys.Load(0, 0x40, nil)
		sys.Load(0, 0x48, nil)
		sys.Store(1, 0x1000, 5, nil)

		Expect(bar.InProgress).To(Equal(uint64(3)))
		Expect(bar.Finished).To(BeZero())

		Expect(sys.Run()).To(Succeed())

		Expect(bar.InProgress).To(BeZero())
		Expect(bar.Finished).To(Equal(uint64(3)))
		Expect(bar.Done()).To(BeTrue())
	})
})

var _ = Describe("env defaults", func() {
	It("should read typed values", func() {
		GinkgoT().Setenv("MSISIM_TEST_INT", "7")
		GinkgoT().Setenv("MSISIM_TEST_BAD", "x")
		GinkgoT().Setenv("MSISIM_TEST_BOOL", "true")

		Expect(envInt("MSISIM_TEST_INT", 1)).To(Equal(7))
		Expect(envInt("MSISIM_TEST_BAD", 1)).To(Equal(1))
		Expect(envInt("MSISIM_TEST_UNSET", 2)).To(Equal(2))
		Expect(envBool("MSISIM_TEST_BOOL", false)).To(BeTrue())
		Expect(envFloat("MSISIM_TEST_BAD", 0.5)).To(Equal(0.5))
		Expect(envString("MSISIM_TEST_UNSET", "d")).To(Equal("d"))
	})
})
