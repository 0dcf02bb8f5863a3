package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"
)

const title = "WithSecure API Export Tool"

type Notifier interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

var _ Notifier = &notifier{}

// send is replaced in tests
var send = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

type notifier struct {
	log     logrus.FieldLogger
	desktop bool
}

// New returns a Notifier that always logs, and additionally raises a desktop
// notification when desktop is set.
func New(log logrus.FieldLogger, desktop bool) Notifier {
	return &notifier{log: log, desktop: desktop}
}

func (n *notifier) Infof(format string, args ...any) {
	n.printf(logrus.InfoLevel, format, args...)
}

func (n *notifier) Errorf(format string, args ...any) {
	n.printf(logrus.ErrorLevel, format, args...)
}

func (n *notifier) printf(logLevel logrus.Level, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	if logLevel == logrus.ErrorLevel {
		n.log.Error(message)
	} else {
		n.log.Info(message)
	}

	if !n.desktop {
		return
	}
	if err := send(title, message); err != nil {
		n.log.WithError(err).Warn("sending desktop notification")
	}
}
