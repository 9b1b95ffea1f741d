package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorbook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbook_booking_transitions_total",
			Help: "Booking status transitions by target status",
		},
		[]string{"status"},
	)

	RecurringChildrenSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorbook_recurring_children_skipped_total",
			Help: "Recurring occurrences skipped because of a scheduling conflict",
		},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbook_payments_total",
			Help: "Payment status changes by status and method",
		},
		[]string{"status", "method"},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbook_refunds_total",
			Help: "Refund status changes",
		},
		[]string{"status"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorbook_gateway_request_duration_seconds",
			Help:    "Payment gateway call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)

	ExpiredBookingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorbook_expired_bookings_total",
			Help: "Bookings moved to expired by the sweep",
		},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbook_job_runs_total",
			Help: "Background job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbook_notifications_total",
			Help: "Notifications dispatched by kind and channel outcome",
		},
		[]string{"kind", "status"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbook_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tutorbook_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBookingTransition(status string) {
	BookingTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordSkippedOccurrences(n int) {
	RecurringChildrenSkippedTotal.Add(float64(n))
}

func RecordPayment(status, method string) {
	PaymentsTotal.WithLabelValues(status, method).Inc()
}

func RecordRefund(status string) {
	RefundsTotal.WithLabelValues(status).Inc()
}

func RecordGatewayCall(operation string, err error, seconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	GatewayRequestDuration.WithLabelValues(operation, outcome).Observe(seconds)
}

func RecordExpired(n int64) {
	ExpiredBookingsTotal.Add(float64(n))
}

func RecordJobRun(job string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	JobRunsTotal.WithLabelValues(job, outcome).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}

func RecordEmail(status string) {
	EmailsSentTotal.WithLabelValues(status).Inc()
}
