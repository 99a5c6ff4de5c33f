package metrics

import (
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// LiquidStakeMetrics tracks units of work and the queue-backed ledgers of the
// staking and liquidity swap modules.
type LiquidStakeMetrics struct {
	units       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	settlements *prometheus.CounterVec
	queueLength *prometheus.GaugeVec
	queueValue  *prometheus.GaugeVec
	remainder   prometheus.Gauge
	height      prometheus.Gauge
}

var (
	liquidStakeOnce     sync.Once
	liquidStakeRegistry *LiquidStakeMetrics
)

func LiquidStake() *LiquidStakeMetrics {
	liquidStakeOnce.Do(func() {
		liquidStakeRegistry = &LiquidStakeMetrics{
			units: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidstake_units_total",
				Help: "Units of work applied by action and outcome.",
			}, []string{"action", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "liquidstake_unit_duration_seconds",
				Help:    "Latency of units of work by action.",
				Buckets: prometheus.DefBuckets,
			}, []string{"action"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidstake_settlements_total",
				Help: "Queue nodes paid out or filled, by module.",
			}, []string{"module"}),
			queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidstake_queue_length",
				Help: "Number of entries waiting in each module queue.",
			}, []string{"module"}),
			queueValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidstake_queue_value",
				Help: "Sum of outstanding values in each module queue.",
			}, []string{"module"}),
			remainder: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "liquidstake_swap_remainder",
				Help: "Liquid tokens left over from truncated order fills.",
			}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "liquidstake_block_height",
				Help: "Height of the last committed unit of work.",
			}),
		}
		prometheus.MustRegister(
			liquidStakeRegistry.units,
			liquidStakeRegistry.latency,
			liquidStakeRegistry.settlements,
			liquidStakeRegistry.queueLength,
			liquidStakeRegistry.queueValue,
			liquidStakeRegistry.remainder,
			liquidStakeRegistry.height,
		)
	})
	return liquidStakeRegistry
}

func (m *LiquidStakeMetrics) ObserveUnit(action, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.units.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *LiquidStakeMetrics) AddSettlements(module string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.settlements.WithLabelValues(module).Add(float64(count))
}

// SetQueue publishes the length and outstanding value of a module queue.
func (m *LiquidStakeMetrics) SetQueue(module string, length uint64, total *uint256.Int) {
	if m == nil {
		return
	}
	m.queueLength.WithLabelValues(module).Set(float64(length))
	m.queueValue.WithLabelValues(module).Set(toFloat(total))
}

func (m *LiquidStakeMetrics) SetRemainder(amount *uint256.Int) {
	if m == nil {
		return
	}
	m.remainder.Set(toFloat(amount))
}

func (m *LiquidStakeMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// toFloat is lossy above 2^53; gauges only need the magnitude.
func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
