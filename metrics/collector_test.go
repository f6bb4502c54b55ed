package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.RecordLoad(SourceJSON, ResultOK, 10*time.Millisecond)
	c.RecordLoad(SourceJSON, ResultOK, 10*time.Millisecond)
	c.RecordLoad(SourceFile, ResultError, 0)
	c.RecordFrame(nil)
	c.RecordFrame(errors.New("lost"))
	c.SessionStarted()
	c.SessionStarted()
	c.SessionStopped()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.loadsTotal.WithLabelValues(SourceJSON, ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loadsTotal.WithLabelValues(SourceFile, ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesRendered))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.renderErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeSessions))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordLoad(SourceJSON, ResultOK, time.Second)
		c.RecordFrame(nil)
		c.SessionStarted()
		c.SessionStopped()
		c.ClientConnected()
		c.ClientDisconnected()
	})
}
