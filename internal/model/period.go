package model

import (
	"fmt"
	"time"
)

// TimePeriod is a recurring daily interval during which tasks may be created.
// A period whose end is not after its start wraps past midnight.
type TimePeriod struct {
	ID          string
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	MaxHours    int
	CreatedAt   time.Time
}

func (p TimePeriod) Validate() error {
	if p.StartHour < 0 || p.StartHour > 23 {
		return fmt.Errorf("model: period start hour %d out of range", p.StartHour)
	}
	if p.EndHour < 0 || p.EndHour > 23 {
		return fmt.Errorf("model: period end hour %d out of range", p.EndHour)
	}
	if p.StartMinute < 0 || p.StartMinute > 59 {
		return fmt.Errorf("model: period start minute %d out of range", p.StartMinute)
	}
	if p.EndMinute < 0 || p.EndMinute > 59 {
		return fmt.Errorf("model: period end minute %d out of range", p.EndMinute)
	}
	if p.MaxHours < 1 || p.MaxHours > 24 {
		return fmt.Errorf("model: period max hours %d out of range 1-24", p.MaxHours)
	}
	return nil
}

func (p TimePeriod) Label() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", p.StartHour, p.StartMinute, p.EndHour, p.EndMinute)
}
