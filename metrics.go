package main

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_entries_total",
		Help: "Vehicle entry requests by result.",
	}, []string{"result"})

	exitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_exits_total",
		Help: "Vehicle exit requests by result.",
	}, []string{"result"})

	chargeAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_charge_amount",
		Help:    "Charge billed per closed ticket.",
		Buckets: prometheus.LinearBuckets(2.5, 2.5, 16),
	})

	openTickets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parking_open_tickets",
		Help: "Open tickets seen by the last sweep.",
	})

	staleTickets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parking_stale_tickets",
		Help: "Open tickets older than the stale threshold at the last sweep.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)

func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			httpRequestsTotal.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			return err
		}
	}
}
