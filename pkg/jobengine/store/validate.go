package store

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jholhewres/jobengine/pkg/jobengine/coreerr"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// validateSpec checks a CreateJobSpec against its struct tags and the
// schedule/kind compatibility rule the tags can't express.
func validateSpec(spec CreateJobSpec) error {
	if err := validatorInstance().Struct(spec); err != nil {
		return coreerr.Wrap(coreerr.KindInvalidInput, "invalid job spec", err)
	}
	return validateScheduleKind(spec.Kind, spec.Schedule)
}

// validatePatch checks an UpdateJobPatch against its struct tags.
func validatePatch(patch UpdateJobPatch) error {
	if err := validatorInstance().Struct(patch); err != nil {
		return coreerr.Wrap(coreerr.KindInvalidInput, "invalid job patch", err)
	}
	return nil
}

// validateScheduleKind enforces the "exactly one schedule variant,
// matching kind" invariant.
func validateScheduleKind(kind JobKind, sched Schedule) error {
	switch kind {
	case KindOneTime:
		if sched.Kind != ScheduleImmediate && sched.Kind != ScheduleAt {
			return coreerr.New(coreerr.KindInvalidInput, "one_time jobs require schedule.kind = immediate or at")
		}
	case KindRecurring:
		if sched.Kind != ScheduleCron {
			return coreerr.New(coreerr.KindInvalidInput, "recurring jobs require schedule.kind = cron")
		}
	default:
		return coreerr.New(coreerr.KindInvalidInput, "unknown job kind")
	}
	return nil
}

// checkScheduledTimeInPast rejects an "at" schedule earlier than now.
func checkScheduledTimeInPast(sched Schedule, now time.Time) error {
	if sched.Kind == ScheduleAt && sched.At.Before(now) {
		return coreerr.New(coreerr.KindScheduledTimeInPast, "scheduled time is in the past")
	}
	return nil
}
