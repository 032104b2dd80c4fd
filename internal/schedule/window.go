package schedule

import (
	"fmt"
	"time"

	"timebox/internal/model"
)

const minutesPerDay = 24 * 60

// span is a period normalized to minutes since midnight. end is strictly
// greater than start and exceeds minutesPerDay when the period wraps midnight.
type span struct {
	start int
	end   int
}

func normalize(p model.TimePeriod) span {
	s := p.StartHour*60 + p.StartMinute
	e := p.EndHour*60 + p.EndMinute
	if e <= s {
		e += minutesPerDay
	}
	return span{start: s, end: e}
}

func (sp span) contains(minute int) bool {
	if sp.start <= minute && minute < sp.end {
		return true
	}
	// shifted check for spans that stretch past midnight
	shifted := minute + minutesPerDay
	return sp.start <= shifted && shifted < sp.end
}

// DefaultPeriod is the window assumed when no periods are configured.
func DefaultPeriod() model.TimePeriod {
	return model.TimePeriod{StartHour: 5, EndHour: 21, MaxHours: 6}
}

// CheckOverlap rejects a candidate period that shares any minute with an
// existing one. Periods that merely touch at a boundary are accepted. The
// period with excludeID is skipped so updates do not collide with themselves.
func CheckOverlap(candidate model.TimePeriod, existing []model.TimePeriod, excludeID string) error {
	c := normalize(candidate)
	for _, p := range existing {
		if excludeID != "" && p.ID == excludeID {
			continue
		}
		o := normalize(p)
		if c.start < o.end && o.start < c.end {
			return model.NewFailure(model.CodeOverlappingPeriod,
				"period %s overlaps existing period %s", candidate.Label(), p.Label())
		}
	}
	return nil
}

type Window struct {
	CanCreate bool
	Period    model.TimePeriod
	MaxHours  int
	Reason    string
}

// ResolveWindow finds the period containing now. Periods are mutually
// exclusive, so at most one can match. An empty period set behaves as if
// DefaultPeriod were the only configured row.
func ResolveWindow(now time.Time, periods []model.TimePeriod) Window {
	if len(periods) == 0 {
		periods = []model.TimePeriod{DefaultPeriod()}
	}
	minute := now.Hour()*60 + now.Minute()
	for _, p := range periods {
		if normalize(p).contains(minute) {
			return Window{CanCreate: true, Period: p, MaxHours: p.MaxHours}
		}
	}
	return Window{
		Reason: fmt.Sprintf("no task period is open at %02d:%02d", now.Hour(), now.Minute()),
	}
}
