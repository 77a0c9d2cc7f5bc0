package worker

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryJob(t *testing.T) {
	p := NewPool(4)
	var n atomic.Int32
	for i := 0; i < 100; i++ {
		p.Submit(func() { n.Add(1) })
	}
	p.Stop()
	require.EqualValues(t, 100, n.Load())
}

func TestPoolSurvivesPanics(t *testing.T) {
	p := NewPool(1)
	var n atomic.Int32
	p.Submit(func() { panic("boom") })
	p.Submit(func() { n.Add(1) })
	p.Stop()
	require.EqualValues(t, 1, n.Load())
}

func TestSubmitAfterStop(t *testing.T) {
	p := NewPool(1)
	p.Stop()
	p.Stop()

	done := make(chan struct{})
	p.Submit(func() { close(done) })
	<-done
}
