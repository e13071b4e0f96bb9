package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with respondent tokens scrubbed
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	component := ee.GetComponent()

	sentry.WithScope(func(scope *sentry.Scope) {
		title := generateErrorTitle(ee)

		scope.SetTag("error_title", title)
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessage(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}

		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle builds "<Component> <Category> <Operation>" for grouping in Sentry
func generateErrorTitle(ee *EnhancedError) string {
	var parts []string

	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		parts = append(parts, titleCase(component))
	}

	if category := formatCategoryForTitle(ee.Category); category != "" {
		parts = append(parts, category)
	}

	if operation, ok := ee.GetContext()["operation"].(string); ok && operation != "" {
		words := strings.Fields(strings.ReplaceAll(operation, "_", " "))
		for i, w := range words {
			words[i] = titleCase(w)
		}
		parts = append(parts, strings.Join(words, " "))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}

	return strings.Join(parts, " ")
}

func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryNotFound:
		return "Not Found"
	case CategoryUnsupported:
		return "Unsupported Operation"
	case CategoryDatabase:
		return "Database Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryFileParsing:
		return "File Parsing Error"
	case CategoryNetwork:
		return "Network Error"
	default:
		return string(category)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNotFound, CategoryNetwork, CategoryFileIO, CategoryHTTP:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var (
	globalTelemetryReporter atomic.Pointer[TelemetryReporter]
	hasActiveReporting      atomic.Bool
)

// SetTelemetryReporter sets the global telemetry reporter, nil disables reporting
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
		hasActiveReporting.Store(false)
		return
	}
	globalTelemetryReporter.Store(&reporter)
	hasActiveReporting.Store(reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	if r := globalTelemetryReporter.Load(); r != nil {
		return *r
	}
	return nil
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

var (
	urlQueryRegex = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	tokenRegex    = regexp.MustCompile(`(?i)(q-token|token|access_token|password)([=:]\s*|"\s*:\s*")[^\s"&,]+`)
	dsnRegex      = regexp.MustCompile(`(\w+):[^@\s]+@(tcp|unix)\(`)
)

// scrubMessage removes respondent tokens, URL query strings and DSN passwords
func scrubMessage(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = tokenRegex.ReplaceAllString(scrubbed, "$1$2[REDACTED]")
	return dsnRegex.ReplaceAllString(scrubbed, "$1:[REDACTED]@$2(")
}
