package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the application counters. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	BillsCreated      *prometheus.CounterVec
	PaymentsRecorded  *prometheus.CounterVec
	BillTransitions   *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	ScanRuns          *prometheus.CounterVec
	ScanBills         *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BillsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dormitory",
			Name:      "bills_created_total",
			Help:      "Bills created.",
		}, []string{"dormitory_id"}),
		PaymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dormitory",
			Name:      "payments_recorded_total",
			Help:      "Payments recorded against bills.",
		}, []string{"method"}),
		BillTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dormitory",
			Name:      "bill_transitions_total",
			Help:      "Bill status transitions.",
		}, []string{"to"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dormitory",
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel, event and outcome.",
		}, []string{"channel", "event", "outcome"}),
		ScanRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dormitory",
			Name:      "scan_runs_total",
			Help:      "Due/overdue scan runs.",
		}, []string{"outcome"}),
		ScanBills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dormitory",
			Name:      "scan_bills_total",
			Help:      "Bills processed by the due/overdue scan.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.BillsCreated,
			m.PaymentsRecorded,
			m.BillTransitions,
			m.NotificationsSent,
			m.ScanRuns,
			m.ScanBills,
		)
	}
	return m
}

func (m *Metrics) IncBillCreated(dormitoryID string) {
	if m == nil {
		return
	}
	m.BillsCreated.WithLabelValues(dormitoryID).Inc()
}

func (m *Metrics) IncPayment(method string) {
	if m == nil {
		return
	}
	m.PaymentsRecorded.WithLabelValues(method).Inc()
}

func (m *Metrics) IncTransition(to string) {
	if m == nil {
		return
	}
	m.BillTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncNotification(channel, event, outcome string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(channel, event, outcome).Inc()
}

func (m *Metrics) IncScanRun(outcome string) {
	if m == nil {
		return
	}
	m.ScanRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddScanBills(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ScanBills.WithLabelValues(kind).Add(float64(n))
}
