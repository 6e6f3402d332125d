package admission

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/daycare-scheduler/pkg/core/interval"
)

// RecurrenceRule generates the original booking plus four weekly siblings
const RecurrenceRule = "FREQ=WEEKLY;COUNT=5"

// Slot is a start/end pair produced by recurrence expansion
type Slot struct {
	Start time.Time
	End   time.Time
}

// ExpandRecurrence returns the sibling slots of a recurring booking: the
// occurrences of RecurrenceRule after the first one, each the original slot
// moved by whole weeks. Siblings never recur themselves.
func ExpandRecurrence(start, end time.Time) ([]Slot, error) {
	opt, err := rrule.StrToROption(RecurrenceRule)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule: %w", err)
	}
	opt.Dtstart = start

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	// rrule drops sub-second precision, so it only decides how many weeks
	occurrences := rule.All()
	if len(occurrences) == 0 {
		return nil, nil
	}

	siblings := make([]Slot, 0, len(occurrences)-1)
	for k := 1; k < len(occurrences); k++ {
		siblings = append(siblings, Slot{
			Start: interval.AddWeeks(start, k),
			End:   interval.AddWeeks(end, k),
		})
	}
	return siblings, nil
}
