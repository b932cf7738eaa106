package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(TransactionsAppended.WithLabelValues("credit_deposit"))
	TransactionsAppended.WithLabelValues("credit_deposit").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(TransactionsAppended.WithLabelValues("credit_deposit")))

	before = testutil.ToFloat64(AccrualGrants.WithLabelValues(OutcomeSkipped))
	AccrualGrants.WithLabelValues(OutcomeSkipped).Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(AccrualGrants.WithLabelValues(OutcomeSkipped)))
}
