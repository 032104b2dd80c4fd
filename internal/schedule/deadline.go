package schedule

import (
	"time"

	"timebox/internal/model"
)

const deadlineLayout = "2006-01-02 15:04"

// CalculateDeadline derives the default deadline for a task created at now:
// the full max duration of the open window. The deadline may land outside
// the window itself.
func CalculateDeadline(now time.Time, periods []model.TimePeriod) (time.Time, error) {
	w := ResolveWindow(now, periods)
	if !w.CanCreate {
		return time.Time{}, model.NewFailure(model.CodeWindowClosed, "%s", w.Reason)
	}
	return MaxDeadline(now, w), nil
}

// MaxDeadline is the latest deadline the window permits for a task created
// at now.
func MaxDeadline(now time.Time, w Window) time.Time {
	return now.Add(time.Duration(w.MaxHours) * time.Hour)
}

// ValidateCustomDeadline accepts a user-chosen deadline iff it lies strictly
// after now and no later than the open window's maximum.
func ValidateCustomDeadline(now, deadline time.Time, periods []model.TimePeriod) error {
	w := ResolveWindow(now, periods)
	if !w.CanCreate {
		return model.NewFailure(model.CodeWindowClosed, "%s", w.Reason)
	}
	if !deadline.After(now) {
		return model.NewFailure(model.CodeDeadlineInPast,
			"deadline %s is not after %s", deadline.Format(deadlineLayout), now.Format(deadlineLayout))
	}
	max := MaxDeadline(now, w)
	if deadline.After(max) {
		return model.NewFailure(model.CodeDeadlineTooFar,
			"deadline %s is past the %dh window limit (latest %s)",
			deadline.Format(deadlineLayout), w.MaxHours, max.Format(deadlineLayout))
	}
	return nil
}
