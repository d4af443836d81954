package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat and booking flows.
type ChatMetrics struct {
	messagesTotal     *prometheus.CounterVec
	bookingSteps      *prometheus.CounterVec
	bookingsTotal     *prometheus.CounterVec
	generationTotal   *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	httpLatency       *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetchat",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Total chat messages handled, by route taken",
		}, []string{"route"}),
		bookingSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetchat",
			Subsystem: "booking",
			Name:      "step_transitions_total",
			Help:      "Booking dialogue transitions by step and outcome",
		}, []string{"step", "outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetchat",
			Subsystem: "booking",
			Name:      "completed_total",
			Help:      "Booking dialogues that ended, by result",
		}, []string{"result"}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetchat",
			Subsystem: "llm",
			Name:      "generations_total",
			Help:      "Text generation calls by provider and status",
		}, []string{"provider", "status"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vetchat",
			Subsystem: "llm",
			Name:      "generation_latency_seconds",
			Help:      "Latency of text generation calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vetchat",
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "Latency of API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.bookingSteps, m.bookingsTotal, m.generationTotal, m.generationLatency, m.httpLatency)
	return m
}

// ObserveMessage counts a handled message. route is "booking", "assistant"
// or "booking_start".
func (m *ChatMetrics) ObserveMessage(route string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(route).Inc()
}

func (m *ChatMetrics) ObserveBookingStep(step string, valid bool) {
	if m == nil {
		return
	}
	outcome := "advanced"
	if !valid {
		outcome = "reprompted"
	}
	m.bookingSteps.WithLabelValues(step, outcome).Inc()
}

// ObserveBookingDone counts a finished dialogue: "booked", "cancelled" or
// "abandoned".
func (m *ChatMetrics) ObserveBookingDone(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *ChatMetrics) ObserveGeneration(provider string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.generationTotal.WithLabelValues(provider, status).Inc()
	m.generationLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *ChatMetrics) ObserveHTTP(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, statusClass(status)).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
