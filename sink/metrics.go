package sink

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	verdictAccepted         = "accepted"
	verdictInvalidSender    = "invalid_sender"
	verdictInvalidRecipient = "invalid_recipient"
	verdictRejected         = "rejected"

	resultSpooled   = "spooled"
	resultDiscarded = "discarded"
	resultFailed    = "failed"
)

var (
	recipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "addrspec",
			Subsystem: "sink",
			Name:      "recipients_total",
			Help:      "Recipients offered in RCPT TO, by verdict",
		},
		[]string{"verdict"},
	)
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "addrspec",
			Subsystem: "sink",
			Name:      "messages_total",
			Help:      "Messages received, by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(recipientsTotal)
	prometheus.MustRegister(messagesTotal)
}
