// 주입형 메트릭 싱크 정의
//
// 전역 가변 카운터 대신 명시적으로 주입되는 의존성으로 관리하여
// 테스트에서 독립 레지스트리를 쓸 수 있게 함

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink - 서비스 레이어가 사용하는 카운터 묶음
type Sink struct {
	ObservationsIngested prometheus.Counter
	ObservationsRejected prometheus.Counter
	IntervalsOpened      prometheus.Counter
	IntervalsClosed      prometheus.Counter
	BatchRetries         prometheus.Counter
	SlaComputations      prometheus.Counter
	RetentionDeleted     prometheus.Counter
}

// NewSink - 카운터를 생성하고 주어진 레지스트리에 등록
func NewSink(reg prometheus.Registerer) *Sink {
	s := &Sink{
		ObservationsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_health_observations_ingested_total",
			Help: "Accepted state observations.",
		}),
		ObservationsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_health_observations_rejected_total",
			Help: "Observations rejected by validation.",
		}),
		IntervalsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_health_intervals_opened_total",
			Help: "State intervals opened by the history builder.",
		}),
		IntervalsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_health_intervals_closed_total",
			Help: "State intervals closed by the history builder.",
		}),
		BatchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_health_batch_retries_total",
			Help: "Ingestion batches retried after a concurrency conflict.",
		}),
		SlaComputations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_health_sla_computations_total",
			Help: "SLA aggregation runs.",
		}),
		RetentionDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_health_retention_deleted_rows_total",
			Help: "Rows removed by the retention job.",
		}),
	}

	reg.MustRegister(
		s.ObservationsIngested, s.ObservationsRejected,
		s.IntervalsOpened, s.IntervalsClosed,
		s.BatchRetries, s.SlaComputations, s.RetentionDeleted,
	)
	return s
}

// NewNopSink - 레지스트리에 등록하지 않는 테스트용 싱크
func NewNopSink() *Sink {
	return NewSink(prometheus.NewRegistry())
}
