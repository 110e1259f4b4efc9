package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordInvocation(t *testing.T) {
	counter := InvocationTotal.WithLabelValues("process")
	before := testutil.ToFloat64(counter)

	RecordInvocation("process", 1.5)

	require.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordOutput(t *testing.T) {
	counter := OutputBytes.WithLabelValues("stderr")
	before := testutil.ToFloat64(counter)

	RecordOutput("stderr", 42)

	require.Equal(t, before+42, testutil.ToFloat64(counter))
}

func TestActiveInvocations(t *testing.T) {
	before := testutil.ToFloat64(ActiveInvocations)

	InvocationStarted()
	require.Equal(t, before+1, testutil.ToFloat64(ActiveInvocations))

	InvocationFinished()
	require.Equal(t, before, testutil.ToFloat64(ActiveInvocations))
}
