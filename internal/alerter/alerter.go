package alerter

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/model"
	"fmt"
	"html"
	"strings"

	log "github.com/sirupsen/logrus"
)

var operators = map[string]bool{">": true, "<": true, "=": true, ">=": true, "<=": true}

// Alert is one rule that fired for a run.
type Alert struct {
	Rule  config.AlerterRule
	Value float64
}

// Alerter evaluates run summaries against threshold rules and notifies when
// any of them fire.
type Alerter struct {
	rules    []config.AlerterRule
	notifier model.Notifier
}

// NewAlerter creates a new Alerter. Rules naming an unknown metric or
// operator are rejected.
func NewAlerter(cfg config.AlerterConfig, notifier model.Notifier) (*Alerter, error) {
	for _, rule := range cfg.Rules {
		if _, ok := (model.Summary{}).Metric(rule.Metric); !ok {
			return nil, fmt.Errorf("alert rule '%s': unknown metric '%s'", rule.Name, rule.Metric)
		}
		if !operators[rule.Operator] {
			return nil, fmt.Errorf("alert rule '%s': unknown operator '%s'", rule.Name, rule.Operator)
		}
	}
	return &Alerter{rules: cfg.Rules, notifier: notifier}, nil
}

// Evaluate returns the rules the summary violates, in rule order.
func (a *Alerter) Evaluate(summary model.Summary) []Alert {
	var alerts []Alert
	for _, rule := range a.rules {
		value, _ := summary.Metric(rule.Metric)
		if check(value, rule.Threshold, rule.Operator) {
			alerts = append(alerts, Alert{Rule: rule, Value: value})
		}
	}
	return alerts
}

// Run evaluates the summary and sends one consolidated notification if any
// rule fired. It returns the alerts that fired.
func (a *Alerter) Run(summary model.Summary) ([]Alert, error) {
	alerts := a.Evaluate(summary)
	if len(alerts) == 0 {
		return nil, nil
	}
	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(alerts))

	if a.notifier == nil {
		return alerts, nil
	}
	subject := fmt.Sprintf("NetProfiler Alert Summary for %s (%d Triggered)", summary.Capture, len(alerts))
	if err := a.notifier.Send(subject, Body(summary, alerts)); err != nil {
		return alerts, fmt.Errorf("failed to send alert notification: %w", err)
	}
	log.Printf("Consolidated alert notification sent successfully.")
	return alerts, nil
}

// Body renders the HTML notification for a set of alerts.
func Body(summary model.Summary, alerts []Alert) string {
	msgs := make([]string, 0, len(alerts))
	for _, al := range alerts {
		msgs = append(msgs, fmt.Sprintf("<h3>Alert: %s</h3>"+
			"<ul>"+
			"<li><b>Capture:</b> <code>%s</code></li>"+
			"<li><b>Metric:</b> <code>%s</code></li>"+
			"<li><b>Condition:</b> <code>%s %.2f</code></li>"+
			"<li><b>Observed Value:</b> <code>%s</code></li>"+
			"</ul>",
			html.EscapeString(al.Rule.Name), html.EscapeString(summary.Capture), al.Rule.Metric,
			html.EscapeString(al.Rule.Operator), al.Rule.Threshold, formatMetric(al.Value)))
	}
	return "<h1>NetProfiler Alert Summary</h1>" +
		fmt.Sprintf("<p>%d of %d flows failed validation.</p><hr>", summary.InvalidFlows, summary.TotalFlows) +
		strings.Join(msgs, "<hr>")
}

func formatMetric(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.4f", v)
}

// check compares a value against a threshold based on an operator.
func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case "=":
		return value == threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		log.Printf("Warning: unknown operator '%s' in alerter rule", operator)
		return false
	}
}
