//go:build unix

package shell

import (
	"context"
	"testing"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(0).Timeout())
	assert.Equal(t, 5*time.Second, New(5*time.Second).Timeout())
}

func TestRun_Stdout(t *testing.T) {
	out, err := New(0).Run(context.Background(), "echo", "  tiercache  ")
	require.NoError(t, err)
	assert.Equal(t, "tiercache", out)
}

func TestRun_NoArgs(t *testing.T) {
	_, err := New(0).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeInvalidInput, platformerrors.GetCode(err))
}

func TestRun_Failure(t *testing.T) {
	_, err := New(0).Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeExecutionFailed, platformerrors.GetCode(err))
	assert.Contains(t, err.Error(), "sh failed")
}

func TestRun_Timeout(t *testing.T) {
	_, err := New(100*time.Millisecond).Run(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeTimeout, platformerrors.GetCode(err))
}

func TestRun_ConcurrentCallers(t *testing.T) {
	cmd := New(0)
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := cmd.Run(context.Background(), "true")
			errs <- err
		}()
	}
	for i := 0; i < 4; i++ {
		assert.NoError(t, <-errs)
	}
}
