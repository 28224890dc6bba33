// Package journal records what a patchbay run did, entry by entry, so the
// run can be rendered as a report once it is over. Entries are produced
// through a logrus.Logger whose output is discarded; a hook keeps them in
// memory and mirrors them to the diagnostic zerolog logger.
package journal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
)

const (
	fieldDevice  = "device"
	fieldDetails = "details"
	fieldOutcome = "outcome"

	outcomeSuccess = "success"
	outcomeFailure = "failure"

	TimeFormat = "2006-01-02 15:04:05"
)

// Details are the structured key/values attached to an entry. A value may
// be a Change to show an old and new value side by side.
type Details map[string]any

// Change is a field transition reported by the component synchronizer.
type Change struct {
	Old any `json:"old" yaml:"old"`
	New any `json:"new" yaml:"new"`
}

type Entry struct {
	Time    time.Time    `json:"time" yaml:"time"`
	Level   logrus.Level `json:"-" yaml:"-"`
	Label   string       `json:"level" yaml:"level"`
	Device  string       `json:"device" yaml:"device"`
	Message string       `json:"message" yaml:"message"`
	Details Details      `json:"details,omitempty" yaml:"details,omitempty"`
}

// Journal is safe for concurrent use, but the components synchronizer
// gives each device its own journal and merges them afterwards so the
// order of entries does not depend on scheduling.
type Journal struct {
	logger *logrus.Logger
	hook   *memoryHook
}

func New() *Journal {
	hook := &memoryHook{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.TraceLevel)
	logger.AddHook(hook)
	return &Journal{logger: logger, hook: hook}
}

func (j *Journal) entry(device string, details []Details) *logrus.Entry {
	fields := logrus.Fields{fieldDevice: device}
	if merged := mergeDetails(details); len(merged) > 0 {
		fields[fieldDetails] = merged
	}
	return j.logger.WithFields(fields)
}

func (j *Journal) Debug(device string, msg string, details ...Details) {
	j.entry(device, details).Debug(msg)
}

func (j *Journal) Debugf(device string, format string, args ...any) {
	j.entry(device, nil).Debugf(format, args...)
}

func (j *Journal) Info(device string, msg string, details ...Details) {
	j.entry(device, details).Info(msg)
}

func (j *Journal) Infof(device string, format string, args ...any) {
	j.entry(device, nil).Infof(format, args...)
}

func (j *Journal) Warning(device string, msg string, details ...Details) {
	j.entry(device, details).Warn(msg)
}

func (j *Journal) Warningf(device string, format string, args ...any) {
	j.entry(device, nil).Warnf(format, args...)
}

func (j *Journal) Error(device string, msg string, details ...Details) {
	j.entry(device, details).Error(msg)
}

// Success() is an info entry flagged as a completed action.
func (j *Journal) Success(device string, msg string, details ...Details) {
	j.entry(device, details).WithField(fieldOutcome, outcomeSuccess).Info(msg)
}

// Failure() is an error entry flagged as a failed precondition or action.
func (j *Journal) Failure(device string, msg string, details ...Details) {
	j.entry(device, details).WithField(fieldOutcome, outcomeFailure).Error(msg)
}

// Entries() returns a copy of everything recorded so far, oldest first.
func (j *Journal) Entries() []Entry {
	return j.hook.snapshot()
}

// Append() adds entries recorded elsewhere, keeping their timestamps.
func (j *Journal) Append(entries ...Entry) {
	j.hook.append(entries...)
}

// Filter() keeps entries whose severity is at least min. logrus orders
// levels from most (panic) to least (trace) severe.
func (j *Journal) Filter(min logrus.Level) []Entry {
	return FilterEntries(j.Entries(), min)
}

func FilterEntries(entries []Entry, min logrus.Level) []Entry {
	filtered := []Entry{}
	for _, e := range entries {
		if e.Level <= min {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Count() is the number of entries at exactly the given level.
func (j *Journal) Count(level logrus.Level) int {
	n := 0
	for _, e := range j.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// ParseLevel() accepts DEBUG, INFO, WARNING and ERROR in any case.
func ParseLevel(s string) (logrus.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return logrus.DebugLevel, nil
	case "", "INFO":
		return logrus.InfoLevel, nil
	case "WARNING", "WARN":
		return logrus.WarnLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	}
	return logrus.InfoLevel, fmt.Errorf("invalid report level '%s' (options: DEBUG, INFO, WARNING, ERROR)", s)
}

// LevelName() is the upper-case name used in reports.
func LevelName(level logrus.Level) string {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return "DEBUG"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.WarnLevel:
		return "WARNING"
	}
	return "ERROR"
}

type memoryHook struct {
	mu      sync.Mutex
	entries []Entry
}

func (h *memoryHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *memoryHook) Fire(e *logrus.Entry) error {
	entry := Entry{
		Time:    e.Time,
		Level:   e.Level,
		Label:   LevelName(e.Level),
		Message: e.Message,
	}
	if device, ok := e.Data[fieldDevice].(string); ok {
		entry.Device = device
	}
	if details, ok := e.Data[fieldDetails].(Details); ok {
		entry.Details = details
	}
	if outcome, ok := e.Data[fieldOutcome].(string); ok {
		entry.Label = strings.ToUpper(outcome)
	}

	log.Debug().
		Str("journal_level", entry.Label).
		Str("device", entry.Device).
		Msg(entry.Message)

	h.append(entry)
	return nil
}

func (h *memoryHook) append(entries ...Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entries...)
}

func (h *memoryHook) snapshot() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

func mergeDetails(details []Details) Details {
	switch len(details) {
	case 0:
		return nil
	case 1:
		return details[0]
	}
	merged := Details{}
	for _, d := range details {
		for k, v := range d {
			merged[k] = v
		}
	}
	return merged
}
