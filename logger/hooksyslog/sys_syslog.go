//go:build linux || darwin

/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package hooksyslog

import (
	"fmt"
	"log/syslog"
)

// systemSyslog returns the local syslog socket this platform's daemon
// listens on, for the empty-endpoint auto-discovery case.
func systemSyslog() (NetworkProtocol, string, error) {
	return NetworkUnixgram, "/dev/log", nil
}

func makePriority(severity Severity, facility Facility) syslog.Priority {
	return makePriorotySeverity(severity) | makePriorotyFacility(facility)
}

func makePriorotySeverity(sev Severity) syslog.Priority {
	switch sev {
	case SeverityEmerg:
		return syslog.LOG_EMERG
	case SeverityAlert:
		return syslog.LOG_ALERT
	case SeverityCrit:
		return syslog.LOG_CRIT
	case SeverityErr:
		return syslog.LOG_ERR
	case SeverityWarning:
		return syslog.LOG_WARNING
	case SeverityNotice:
		return syslog.LOG_NOTICE
	case SeverityInfo:
		return syslog.LOG_INFO
	case SeverityDebug:
		return syslog.LOG_DEBUG
	}
	return 0
}

func makePriorotyFacility(fac Facility) syslog.Priority {
	switch fac {
	case FacilityKern:
		return syslog.LOG_KERN
	case FacilityUser:
		return syslog.LOG_USER
	case FacilityMail:
		return syslog.LOG_MAIL
	case FacilityDaemon:
		return syslog.LOG_DAEMON
	case FacilityAuth:
		return syslog.LOG_AUTH
	case FacilitySyslog:
		return syslog.LOG_SYSLOG
	case FacilityLpr:
		return syslog.LOG_LPR
	case FacilityNews:
		return syslog.LOG_NEWS
	case FacilityUucp:
		return syslog.LOG_UUCP
	case FacilityCron:
		return syslog.LOG_CRON
	case FacilityAuthPriv:
		return syslog.LOG_AUTHPRIV
	case FacilityFTP:
		return syslog.LOG_FTP
	case FacilityLocal0:
		return syslog.LOG_LOCAL0
	case FacilityLocal1:
		return syslog.LOG_LOCAL1
	case FacilityLocal2:
		return syslog.LOG_LOCAL2
	case FacilityLocal3:
		return syslog.LOG_LOCAL3
	case FacilityLocal4:
		return syslog.LOG_LOCAL4
	case FacilityLocal5:
		return syslog.LOG_LOCAL5
	case FacilityLocal6:
		return syslog.LOG_LOCAL6
	case FacilityLocal7:
		return syslog.LOG_LOCAL7
	}
	return 0
}

type _Syslog struct {
	w *syslog.Writer
}

func newSyslog(net NetworkProtocol, host, tag string, fac Facility) (Wrapper, error) {
	var (
		err error
	)

	var obj = &_Syslog{
		w: nil,
	}

	if obj.w, err = obj.openSyslogSev(net, host, tag, makePriority(SeverityInfo, fac)); err != nil {
		_ = obj.Close()
		return nil, err
	}

	return obj, nil
}

func (o *_Syslog) openSyslogSev(net NetworkProtocol, host, tag string, prio syslog.Priority) (*syslog.Writer, error) {
	return syslog.Dial(net.String(), host, prio, tag)
}

func (o *_Syslog) Write(p []byte) (n int, err error) {
	return o.WriteSev(SeverityInfo, p)
}

func (o *_Syslog) WriteSev(sev Severity, p []byte) (n int, err error) {
	if o.w == nil {
		return 0, fmt.Errorf("hooksyslog: connection not setup")
	}

	switch sev {
	case SeverityEmerg:
		return len(p), o.w.Emerg(string(p))
	case SeverityAlert:
		return len(p), o.w.Alert(string(p))
	case SeverityCrit:
		return len(p), o.w.Crit(string(p))
	case SeverityErr:
		return len(p), o.w.Err(string(p))
	case SeverityWarning:
		return len(p), o.w.Warning(string(p))
	case SeverityNotice:
		return len(p), o.w.Notice(string(p))
	case SeverityInfo:
		return len(p), o.w.Info(string(p))
	case SeverityDebug:
		return len(p), o.w.Debug(string(p))
	}

	return o.w.Write(p)
}

func (o *_Syslog) Close() error {
	if o.w == nil {
		return nil
	}

	return o.w.Close()
}

func (o *_Syslog) Panic(p []byte) (n int, err error) {
	return o.WriteSev(SeverityAlert, p)
}

func (o *_Syslog) Fatal(p []byte) (n int, err error) {
	return o.WriteSev(SeverityCrit, p)
}

func (o *_Syslog) Error(p []byte) (n int, err error) {
	return o.WriteSev(SeverityErr, p)
}

func (o *_Syslog) Warning(p []byte) (n int, err error) {
	return o.WriteSev(SeverityWarning, p)
}

func (o *_Syslog) Info(p []byte) (n int, err error) {
	return o.WriteSev(SeverityInfo, p)
}

func (o *_Syslog) Debug(p []byte) (n int, err error) {
	return o.WriteSev(SeverityDebug, p)
}
