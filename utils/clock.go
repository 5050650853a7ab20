package utils

import (
	"time"

	"github.com/beevik/ntp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Clock is the time source for edit windows and regeneration estimates.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant. Tests use it.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

var DefaultNtpServers = []string{"pool.ntp.org", "time.google.com"}

// NtpClock corrects the local clock by the offset measured once against an
// NTP server.
type NtpClock struct {
	offset time.Duration
}

func NewNtpClock(servers []string, log *logrus.Logger) (*NtpClock, error) {
	var lastErr error
	for _, server := range servers {
		ntpTime, err := ntp.Time(server)
		if err != nil {
			lastErr = err
			continue
		}
		offset := ntpTime.Sub(time.Now())
		if log != nil {
			log.WithFields(logrus.Fields{"server": server, "offset": offset}).Info("ntp clock synced")
		}
		return &NtpClock{offset: offset}, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no ntp server configured")
	}
	return nil, errors.WithMessage(lastErr, "acquire ntp time")
}

func (c *NtpClock) Now() time.Time { return time.Now().Add(c.offset).UTC() }
