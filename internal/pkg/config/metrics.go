package config

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// ConfigMetrics provides parameterized Prometheus metrics for configuration management.
//
// Metrics generated (parameterized by component name):
//   - {component}_config_load_timestamp: Unix timestamp of last configuration load
//   - {component}_config_validation_errors_total: Total validation errors by field
//   - {component}_config_fallbacks_total: Total fallback operations by field
//   - {component}_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Example usage:
//
//	m := config.NewConfigMetrics("worker")
//	m.MustRegister(prometheus.DefaultRegisterer)
//	result := config.LoadEnvWithFallback("CRON_SCHEDULE", def, config.ValidateCronSchedule)
//	m.Track(logger, "cron_schedule", result)
type ConfigMetrics struct {
	// LoadTimestamp records the Unix timestamp of the last configuration load.
	LoadTimestamp prometheus.Gauge

	// ValidationErrorsTotal counts configuration validation errors by field.
	ValidationErrorsTotal *prometheus.CounterVec

	// FallbacksTotal counts fallback operations by field and reason.
	FallbacksTotal *prometheus.CounterVec

	// FallbackActive is 1 while any field runs on its fallback value.
	FallbackActive prometheus.Gauge

	componentName string
	active        map[string]bool
}

// NewConfigMetrics creates an unregistered ConfigMetrics whose metric names are
// prefixed with componentName. Register it with MustRegister.
func NewConfigMetrics(componentName string) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", componentName),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", componentName),
		}),

		ValidationErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_validation_errors_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration validation errors", componentName),
		}, []string{"field"}),

		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", componentName),
		}, []string{"field", "reason"}),

		FallbackActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", componentName),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", componentName),
		}),

		componentName: componentName,
		active:        make(map[string]bool),
	}
}

// MustRegister registers all metrics with reg. It panics on duplicate names.
func (m *ConfigMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.LoadTimestamp, m.ValidationErrorsTotal, m.FallbacksTotal, m.FallbackActive)
}

// RecordLoadTimestamp records the current time as the configuration load timestamp.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordValidationError increments the validation error counter for field.
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback increments the fallback counter for field.
// reason is typically "invalid_value".
func (m *ConfigMetrics) RecordFallback(field, reason string) {
	m.FallbacksTotal.WithLabelValues(field, reason).Inc()
}

// SetFallbackActive marks field as running on (or off) its fallback value.
// The gauge is 1 while at least one field is active.
func (m *ConfigMetrics) SetFallbackActive(field string, active bool) {
	if active {
		m.active[field] = true
	} else {
		delete(m.active, field)
	}
	if len(m.active) > 0 {
		m.FallbackActive.Set(1)
		return
	}
	m.FallbackActive.Set(0)
}

// Track logs the warnings of result and updates the metrics for field.
// It returns result.FallbackApplied.
func (m *ConfigMetrics) Track(logger *slog.Logger, field string, result ConfigLoadResult) bool {
	if result.FallbackApplied {
		for _, w := range result.Warnings {
			logger.Warn("configuration fallback applied",
				slog.String("component", m.componentName),
				slog.String("field", field),
				slog.String("warning", w))
		}
		m.RecordValidationError(field)
		m.RecordFallback(field, "invalid_value")
	}
	m.SetFallbackActive(field, result.FallbackApplied)
	return result.FallbackApplied
}
