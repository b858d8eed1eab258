// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Signups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hackattend_signups_total",
		Help: "Accounts registered.",
	})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackattend_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	Verifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hackattend_verifications_total",
		Help: "Students verified by an admin.",
	})

	Attendance = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackattend_attendance_attempts_total",
		Help: "Attendance submissions by source and outcome.",
	}, []string{"source", "result"})

	PhotoOffloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackattend_photo_offloads_total",
		Help: "Profile photos moved to the CDN by result.",
	}, []string{"result"})
)
