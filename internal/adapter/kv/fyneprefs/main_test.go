package fyneprefs

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/melodix-app/melodix/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, testutil.IgnoreFyneGoroutines()...)
}
