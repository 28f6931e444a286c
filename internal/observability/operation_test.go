package observability

import (
	"context"
	"errors"
	"testing"

	"chirp/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStartOperation_RecordsOutcome(t *testing.T) {
	okBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("test", "op", "ok"))
	conflictBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("test", "op", models.CodeConflict))
	internalBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("test", "op", models.CodeInternal))

	run := func(result error) {
		_, finish := StartOperation(context.Background(), "test", "op")
		finish(&result)
	}

	run(nil)
	run(models.NewConflictError(models.ConflictUsernameTaken, "taken"))
	run(errors.New("plain"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("test", "op", "ok")))
	assert.Equal(t, conflictBefore+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("test", "op", models.CodeConflict)))
	assert.Equal(t, internalBefore+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("test", "op", models.CodeInternal)))
}

func TestStartOperation_NilErrorPointer(t *testing.T) {
	_, finish := StartOperation(context.Background(), "test", "nil_ptr")
	assert.NotPanics(t, func() { finish(nil) })
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel(" Warning ").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}
