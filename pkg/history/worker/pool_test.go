package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/history"
	"github.com/papercomputeco/agentchat/pkg/history/inmemory"
	"github.com/papercomputeco/agentchat/pkg/logger"
)

// newTestPool creates a worker pool backed by an in-memory driver.
// Callers should "wp.Close()" to drain enqueued jobs before asserting storage state.
func newTestPool() (*Pool, *inmemory.Driver) {
	driver := inmemory.NewDriver()

	wp, err := NewPool(&Config{
		Driver: driver,
		Logger: logger.New(logger.WithDebug(true), logger.WithWriter(GinkgoWriter)),
	})
	Expect(err).NotTo(HaveOccurred())

	return wp, driver
}

func exchange(id string) *history.Exchange {
	return &history.Exchange{
		ID:        id,
		Workspace: "ws-1",
		ChatID:    "c1",
		Prompt:    "hi",
		Reply:     "hello",
		Status:    history.StatusComplete,
	}
}

// blockingDriver holds every Put until release is closed.
type blockingDriver struct {
	*inmemory.Driver
	release chan struct{}
}

func (d *blockingDriver) Put(ctx context.Context, ex *history.Exchange) error {
	<-d.release
	return d.Driver.Put(ctx, ex)
}

type failingDriver struct {
	*inmemory.Driver
}

func (failingDriver) Put(context.Context, *history.Exchange) error {
	return errors.New("disk full")
}

var _ = Describe("Worker Pool", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewPool", func() {
		It("requires a driver", func() {
			_, err := NewPool(&Config{})
			Expect(err).To(HaveOccurred())
		})

		It("applies defaults", func() {
			c := &Config{Driver: inmemory.NewDriver()}
			wp, err := NewPool(c)
			Expect(err).NotTo(HaveOccurred())
			defer wp.Close()

			Expect(c.NumWorkers).To(Equal(defaultNumWorkers))
			Expect(c.QueueSize).To(Equal(defaultJobQueueSize))
			Expect(c.Logger).NotTo(BeNil())
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			wp, _ := newTestPool()
			Expect(wp.Enqueue(Job{Exchange: exchange("e1")})).To(BeTrue())
			wp.Close()
		})

		It("rejects jobs without an exchange", func() {
			wp, _ := newTestPool()
			defer wp.Close()

			Expect(wp.Enqueue(Job{})).To(BeFalse())
		})

		It("drops jobs when the queue is full", func() {
			blocking := &blockingDriver{
				Driver:  inmemory.NewDriver(),
				release: make(chan struct{}),
			}
			wp, err := NewPool(&Config{Driver: blocking, QueueSize: 1, NumWorkers: 1})
			Expect(err).NotTo(HaveOccurred())

			// The first job is picked up by the worker and blocks; the
			// second fills the queue; the third has nowhere to go.
			Expect(wp.Enqueue(Job{Exchange: exchange("e1")})).To(BeTrue())
			Eventually(func() int { return len(wp.queue) }).Should(BeZero())
			Expect(wp.Enqueue(Job{Exchange: exchange("e2")})).To(BeTrue())
			Expect(wp.Enqueue(Job{Exchange: exchange("e3")})).To(BeFalse())

			close(blocking.release)
			wp.Close()

			out, err := blocking.List(ctx, history.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(2))
		})

		It("rejects jobs after Close", func() {
			wp, _ := newTestPool()
			wp.Close()

			Expect(wp.Enqueue(Job{Exchange: exchange("e1")})).To(BeFalse())
		})
	})

	Describe("Close", func() {
		It("drains queued jobs before returning", func() {
			wp, driver := newTestPool()
			for i := range 10 {
				Expect(wp.Enqueue(Job{Exchange: exchange(fmt.Sprintf("e%d", i))})).To(BeTrue())
			}
			wp.Close()

			out, err := driver.List(ctx, history.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(10))
		})

		It("is safe to call concurrently", func() {
			wp, _ := newTestPool()

			var wg sync.WaitGroup
			for range 3 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					wp.Close()
				}()
			}
			wg.Wait()
		})
	})

	It("logs and continues when the driver fails", func() {
		wp, err := NewPool(&Config{Driver: failingDriver{Driver: inmemory.NewDriver()}})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Enqueue(Job{Exchange: exchange("e1")})).To(BeTrue())
		Expect(wp.Enqueue(Job{Exchange: exchange("e2")})).To(BeTrue())
		wp.Close()
	})
})
