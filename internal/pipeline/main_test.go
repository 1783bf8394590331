package pipeline

import (
	"testing"

	"go.uber.org/goleak"
)

// opencensus, linked in through the Gemini SDK, starts a stats worker in init.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}
