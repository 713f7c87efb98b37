package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/spf13/viper"

	"github.com/auctionmarket/goapi/base/log"
)

// buffer a few counters before flushing to the statsd agent
const bufferMetrics = 10

// Service is the metric surface handlers and middleware bump against.
type Service interface {
	BumpSum(key string, val float64, tags ...string)
	BumpHistogram(key string, val float64, tags ...string)
	BumpTime(key string, tags ...string) interface{ End() }
}

var (
	initOnce sync.Once
	ddClient *statsd.Client
)

func initDDClient() {
	host := viper.GetString("datadog_host")
	if host == "" {
		// no agent configured, metrics become no-ops
		return
	}
	addr := fmt.Sprintf("%s:%d", host, 8125)
	log.Log().WithField("addr", addr).Info("connecting to datadog agent")
	cli, err := statsd.NewBuffered(addr, bufferMetrics)
	if err != nil {
		log.Log().WithFields(log.Fields{"addr": addr, "err": err}).Panic("can't talk to datadog agent")
	}
	ddClient = cli
}

type impl struct {
	prefix string
}

// New returns a Service whose keys are prefixed with name.
func New(name string) Service {
	return &impl{prefix: name + "."}
}

func (im *impl) BumpSum(key string, val float64, tags ...string) {
	initOnce.Do(initDDClient)
	if ddClient == nil {
		return
	}
	if err := ddClient.Count(im.prefix+key, int64(val), parseTags(tags), 1); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key}).Error("Bump fail")
	}
}

func (im *impl) BumpHistogram(key string, val float64, tags ...string) {
	initOnce.Do(initDDClient)
	if ddClient == nil {
		return
	}
	if err := ddClient.Histogram(im.prefix+key, val, parseTags(tags), 1); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key}).Error("Bump fail")
	}
}

// BumpTime starts a timer; call End() on the returned value to record.
//
//	defer met.BumpTime("request.time").End()
func (im *impl) BumpTime(key string, tags ...string) interface{ End() } {
	initOnce.Do(initDDClient)
	return &timeTracker{
		start: time.Now(),
		key:   im.prefix + key,
		tags:  parseTags(tags),
	}
}

type timeTracker struct {
	start time.Time
	key   string
	tags  []string
}

func (t *timeTracker) End() {
	if ddClient == nil {
		return
	}
	elapsed := float64(time.Since(t.start).Milliseconds())
	if err := ddClient.TimeInMilliseconds(t.key, elapsed, t.tags, 1); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": t.key}).Error("Bump fail")
	}
}

// parseTags folds "k", "v" pairs into datadog "k:v" tags.
func parseTags(kvs []string) []string {
	tags := make([]string, 0, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		tags = append(tags, kvs[i]+":"+kvs[i+1])
	}
	return tags
}
