// Package notification sends run summaries to chat and push services through shoutrrr.
package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

const (
	defaultTitle   = "surveygen"
	defaultTimeout = 10 * time.Second
)

// Sender delivers a message to every configured service
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Notifier sends one-line summaries. A Notifier without URLs is disabled and
// Notify does nothing.
type Notifier struct {
	sender Sender
	log    logger.Logger
}

// New creates a notifier for shoutrrr service URLs
func New(urls []string, timeout time.Duration, log logger.Logger) (*Notifier, error) {
	if log == nil {
		log = GetLogger()
	}
	urls = slices.DeleteFunc(slices.Clone(urls), func(u string) bool { return strings.TrimSpace(u) == "" })
	if len(urls) == 0 {
		return &Notifier{log: log}, nil
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.ConfigurationError("notification", "urls", fmt.Sprintf("%d url(s)", len(urls)),
			"invalid notification URL: %s", scrub(err.Error()))
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	sender.Timeout = timeout
	sender.SetLogger(discardLogger())

	return &Notifier{sender: sender, log: log}, nil
}

// NewWithSender creates a notifier delivering through sender
func NewWithSender(sender Sender, log logger.Logger) *Notifier {
	if log == nil {
		log = GetLogger()
	}
	return &Notifier{sender: sender, log: log}
}

// Enabled reports whether messages are delivered anywhere
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// Notify sends message with a title. Delivery failures are logged and never returned.
func (n *Notifier) Notify(ctx context.Context, title, message string) {
	if !n.Enabled() {
		return
	}
	if ctx.Err() != nil {
		n.log.Warn("notification skipped, context done", logger.String("title", title))
		return
	}
	if title == "" {
		title = defaultTitle
	}

	params := stypes.Params{}
	params.SetTitle(title)

	failed := 0
	for _, err := range n.sender.Send(message, &params) {
		if err != nil {
			failed++
			n.log.Warn("notification delivery failed",
				logger.String("title", title),
				logger.String("error", scrub(err.Error())))
		}
	}
	if failed == 0 {
		n.log.Debug("notification sent", logger.String("title", title))
	}
}

// SurveysSummary describes a survey generation run
func SurveysSummary(surveyType string, sizes []int) string {
	if len(sizes) == 0 {
		return fmt.Sprintf("No %s surveys generated, no eligible questions left", surveyType)
	}
	total := 0
	for _, s := range sizes {
		total += s
	}
	return fmt.Sprintf("Generated %d %s survey(s) with %d question(s)", len(sizes), surveyType, total)
}

// ResultsSummary describes a result ingestion run
func ResultsSummary(records, failed, answers int) string {
	return fmt.Sprintf("Ingested %d answer(s) from %d record(s), %d record(s) rejected", answers, records, failed)
}

var (
	userInfoPattern    = regexp.MustCompile(`([a-z][a-z0-9+.-]*://)[^@/\s]+@`)
	secretParamPattern = regexp.MustCompile(`([?&](?:token|key|password|secret)=)[^&\s]+`)
)

// scrub removes credentials from text that may contain service URLs
func scrub(s string) string {
	s = userInfoPattern.ReplaceAllString(s, "${1}***@")
	return secretParamPattern.ReplaceAllString(s, "${1}***")
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

var packageLogger logger.Logger

// GetLogger returns the notification module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("notification")
	}
	return packageLogger
}

// SetLogger replaces the notification module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
