package stream

import (
	"testing"

	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/testutil"
)

type testProducer struct {
	reads  []int
	pauses int
	closes int
}

func (p *testProducer) PrimaryRead(count int) { p.reads = append(p.reads, count) }
func (p *testProducer) PrimaryPause()         { p.pauses++ }
func (p *testProducer) PrimaryClose()         { p.closes++ }

type testDuplexImpl struct {
	reads      []int
	written    []int
	closeRead  int
	closeWrite int
}

func (d *testDuplexImpl) PrimaryRead(count int) { d.reads = append(d.reads, count) }
func (d *testDuplexImpl) PrimaryPause()         {}
func (d *testDuplexImpl) PrimaryWriteV(brigade Brigade[int], done func(error, int)) {
	d.written = append(d.written, brigade.Flatten()...)
	done(nil, brigade.Count())
}
func (d *testDuplexImpl) PrimaryCloseRead()  { d.closeRead++ }
func (d *testDuplexImpl) PrimaryCloseWrite() { d.closeWrite++ }
func (d *testDuplexImpl) CanEnd() bool       { return true }

// errorRecorder collects errors delivered on a stream's error channel.
type errorRecorder struct {
	errs []error
}

func (r *errorRecorder) record(err error) { r.errs = append(r.errs, err) }

func newLoop(t *testing.T) *loop.Loop {
	return testutil.NewLoop(t)
}

func run(t *testing.T, lp *loop.Loop) {
	t.Helper()
	testutil.RunLoop(t, lp)
}
