package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRollbackLabels(t *testing.T) {
	okBefore := testutil.ToFloat64(provisioningRollbacks.WithLabelValues("ok"))
	failedBefore := testutil.ToFloat64(provisioningRollbacks.WithLabelValues("failed"))

	RecordRollback(nil)
	RecordRollback(errors.New("identity down"))
	RecordRollback(errors.New("identity down"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(provisioningRollbacks.WithLabelValues("ok")))
	assert.Equal(t, failedBefore+2, testutil.ToFloat64(provisioningRollbacks.WithLabelValues("failed")))
}

func TestRecordPipelineMove(t *testing.T) {
	before := testutil.ToFloat64(pipelineMoves.WithLabelValues("negotiation", "error"))
	RecordPipelineMove("negotiation", errors.New("x"))
	assert.Equal(t, before+1, testutil.ToFloat64(pipelineMoves.WithLabelValues("negotiation", "error")))
}
