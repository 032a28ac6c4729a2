package metric

import (
	"context"
	"os"
	"sync"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"

	"github.com/obsfarm/farmd/common/log"
)

// metric common tag key
var (
	MetricKeyHostname = NewMetricKey("hostname")
	MetricKeyOp       = NewMetricKey("op")
	mKeys             = []tag.Key{MetricKeyHostname}
	mtOnce            sync.Once
	mCtx              context.Context
)

func NewMetricKey(k string) tag.Key {
	key, err := tag.NewKey(k)
	if err != nil {
		log.GlobalLogger().Fatalf("Fail tag.NewKey %s %+v", k, err)
	}
	return key
}

var (
	msOperation    = stats.Int64("farm_operation", "ledger operations", "1")
	msFailure      = stats.Int64("farm_failure", "failed ledger operations", "1")
	msRewardPaid   = stats.Int64("farm_reward_paid", "rewards paid out", "1")
	msRewardAmount = stats.Int64("farm_reward_amount", "amount of rewards paid out", "1")
)

func NewMetricView(m stats.Measure, a *view.Aggregation, tks []tag.Key) *view.View {
	return &view.View{
		Name:        m.Name(),
		Description: m.Description(),
		Measure:     m,
		Aggregation: a,
		TagKeys:     append(mKeys, tks...),
	}
}

func Initialize() context.Context {
	mtOnce.Do(func() {
		hostname := os.Getenv("NODE_NAME")
		if hostname == "" {
			hostname, _ = os.Hostname()
		}
		ctx, err := tag.New(context.Background(),
			tag.Insert(MetricKeyHostname, hostname))
		if err != nil {
			log.GlobalLogger().Fatalf("Fail tag.New %+v", err)
		}
		mCtx = ctx

		err = view.Register(
			NewMetricView(msOperation, view.Count(), []tag.Key{MetricKeyOp}),
			NewMetricView(msFailure, view.Count(), []tag.Key{MetricKeyOp}),
			NewMetricView(msRewardPaid, view.Count(), nil),
			NewMetricView(msRewardAmount, view.Sum(), nil),
		)
		if err != nil {
			log.GlobalLogger().Fatalf("Fail view.Register %+v", err)
		}
	})
	return mCtx
}

func opContext(op string) context.Context {
	ctx, err := tag.New(Initialize(), tag.Upsert(MetricKeyOp, op))
	if err != nil {
		return Initialize()
	}
	return ctx
}

// RecordOperation counts one ledger operation, tagged by kind and outcome.
func RecordOperation(op string, err error) {
	ctx := opContext(op)
	if err != nil {
		stats.Record(ctx, msFailure.M(1))
	} else {
		stats.Record(ctx, msOperation.M(1))
	}
}

// RecordRewardPaid counts a settlement payout.
func RecordRewardPaid(amount int64) {
	stats.Record(Initialize(), msRewardPaid.M(1), msRewardAmount.M(amount))
}

func PrometheusExporter() *prometheus.Exporter {
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: "farmd",
	})
	if err != nil {
		log.GlobalLogger().Errorf("Failed to create Prometheus exporter: %+v", err)
	}
	view.RegisterExporter(pe)
	view.SetReportingPeriod(1000 * time.Millisecond)
	return pe
}
