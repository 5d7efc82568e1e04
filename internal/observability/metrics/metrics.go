package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking lifecycle.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	slotConflictsTotal prometheus.Counter
	cancellationsTotal prometheus.Counter
	reschedulesTotal   prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipul",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Total appointments created",
		}, []string{"status"}),
		slotConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tipul",
			Subsystem: "booking",
			Name:      "slot_conflicts_total",
			Help:      "Bookings rejected at the commit-time availability check",
		}),
		cancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tipul",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Appointments cancelled",
		}),
		reschedulesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tipul",
			Subsystem: "booking",
			Name:      "reschedules_total",
			Help:      "Appointments rescheduled",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotConflictsTotal, m.cancellationsTotal, m.reschedulesTotal)
	return m
}

func (m *BookingMetrics) ObserveCreated(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflictsTotal.Inc()
}

func (m *BookingMetrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellationsTotal.Inc()
}

func (m *BookingMetrics) ObserveReschedule() {
	if m == nil {
		return
	}
	m.reschedulesTotal.Inc()
}

// PaymentMetrics exposes counters/histograms for settlement flows.
type PaymentMetrics struct {
	paymentsTotal   *prometheus.CounterVec
	refundsTotal    *prometheus.CounterVec
	chargeLatency   *prometheus.HistogramVec
	invoiceFailures prometheus.Counter
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipul",
			Subsystem: "payments",
			Name:      "charges_total",
			Help:      "Total charge attempts",
		}, []string{"method", "status"}),
		refundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipul",
			Subsystem: "payments",
			Name:      "refunds_total",
			Help:      "Total refund attempts",
		}, []string{"status"}),
		chargeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tipul",
			Subsystem: "payments",
			Name:      "charge_latency_seconds",
			Help:      "Latency of charge processing including gateway round trips",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		invoiceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tipul",
			Subsystem: "payments",
			Name:      "invoice_failures_total",
			Help:      "Invoices that failed to issue after a successful charge",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.paymentsTotal, m.refundsTotal, m.chargeLatency, m.invoiceFailures)
	return m
}

func (m *PaymentMetrics) ObserveCharge(method, status string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(method, status).Inc()
}

func (m *PaymentMetrics) ObserveRefund(status string) {
	if m == nil {
		return
	}
	m.refundsTotal.WithLabelValues(status).Inc()
}

func (m *PaymentMetrics) ObserveChargeLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.chargeLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *PaymentMetrics) ObserveInvoiceFailure() {
	if m == nil {
		return
	}
	m.invoiceFailures.Inc()
}
