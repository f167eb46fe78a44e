package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/task-tracker/internal/display"
	"github.com/spec-kit/task-tracker/internal/domain"
	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

// DeadlineParser turns wall-clock input from the task form into an instant.
type DeadlineParser struct {
	Location *time.Location
	Layout   string
}

// NewDeadlineParser parses with the datetime-local layout in loc.
func NewDeadlineParser(loc *time.Location) DeadlineParser {
	return DeadlineParser{Location: loc, Layout: display.FormValueLayout}
}

// Parse returns nil for blank input. Otherwise the value is read in the
// parser's location and must not be before now; the result is UTC.
func (p DeadlineParser) Parse(input string, now time.Time) (*time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	layout := p.Layout
	if layout == "" {
		layout = display.FormValueLayout
	}

	local, err := time.ParseInLocation(layout, input, loc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidDeadline, http.StatusBadRequest, domain.ErrInvalidDeadlineFormat)
	}
	if local.Before(now) {
		return nil, apperrors.Wrap(apperrors.CodePastDeadline, http.StatusBadRequest, domain.ErrPastDeadline)
	}

	deadline := local.UTC()
	return &deadline, nil
}
