package metrics

import (
	"context"
	"testing"
)

func TestMongoKillRejectsNonNumericOpid(t *testing.T) {
	// A bad id fails client-side, before any server round trip.
	for _, opid := range []string{"", "abc", "12x", "shard1:44"} {
		if err := mongoKill(context.Background(), nil, opid); err == nil {
			t.Errorf("opid %q: expected an error", opid)
		}
	}
}
