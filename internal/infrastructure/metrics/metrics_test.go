package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestChannelCounters(t *testing.T) {
	before := testutil.ToFloat64(channelSent.WithLabelValues("bounded"))
	ChannelSent("bounded", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(channelSent.WithLabelValues("bounded")))

	before = testutil.ToFloat64(channelDropped.WithLabelValues("unbounded"))
	ChannelDropped("unbounded", 2)
	assert.Equal(t, before+2, testutil.ToFloat64(channelDropped.WithLabelValues("unbounded")))
}

func TestActorMetrics(t *testing.T) {
	IncActorCycles("metrics-test")
	IncActorCycles("metrics-test")
	assert.Equal(t, 2.0, testutil.ToFloat64(actorCycles.WithLabelValues("metrics-test")))

	IncClientErrors("metrics-test", "update")
	assert.Equal(t, 1.0, testutil.ToFloat64(clientErrors.WithLabelValues("metrics-test", "update")))

	running := testutil.ToFloat64(actorsRunning)
	ActorStarted()
	assert.Equal(t, running+1, testutil.ToFloat64(actorsRunning))
	ActorStopped()
	assert.Equal(t, running, testutil.ToFloat64(actorsRunning))
}

func TestRegistryGathers(t *testing.T) {
	IncTransceiverFrames("tx")
	n, err := testutil.GatherAndCount(Registry, "actorflow_transceiver_frames_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandler(t *testing.T) {
	IncTransceiverFrames("tx")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `actorflow_transceiver_frames_total{direction="tx"}`)
	assert.Contains(t, body, "go_goroutines")
}
