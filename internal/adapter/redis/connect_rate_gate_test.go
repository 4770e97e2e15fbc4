package redis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/matchfeed/internal/admission"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestConnectRateGate_FailsClosedWhenRedisUnreachable(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	gate := NewConnectRateGate(rdb, clockwork.NewFakeClock(), 5, 60, false)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	decision, err := gate.Decide(context.Background(), r)
	assert.Equal(t, admission.Error, decision)
	assert.Error(t, err)
}

func TestConnectRateKey(t *testing.T) {
	assert.Equal(t, "rate_limit:ws_connect:10.0.0.1", connectRateKey("10.0.0.1"))
}
