package event

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

var (
	eventCategoryTag  = "eventcategory"
	eventCategoryText = "invalid category"

	eventTypeTag  = "eventtype"
	eventTypeText = "event type must be one of admin, dojo"

	eventStatusTag  = "eventstatus"
	eventStatusText = "status must be one of active, suspended, cancelled, completed"

	recurrencePatternTag  = "recurrencepattern"
	recurrencePatternText = "recurrence pattern must be one of daily, weekly, monthly, yearly"

	weekdaysTag  = "weekdays"
	weekdaysText = "weekdays must be between 0 (Monday) and 6 (Sunday)"

	reminderPriorityTag  = "reminderpriority"
	reminderPriorityText = "reminder priority must be one of high, medium, low"

	reminderTypeTag  = "remindertype"
	reminderTypeText = "reminder type must be one of banner, badge, popup"
)

// InitValidators registers the event validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	register := func(tag, text string, values []string) {
		_ = validate.RegisterValidation(tag, oneOfValidation(values))
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
	register(eventCategoryTag, eventCategoryText, AllCategories)
	register(eventTypeTag, eventTypeText, AllTypes)
	register(eventStatusTag, eventStatusText, AllStatuses)
	register(recurrencePatternTag, recurrencePatternText, AllPatterns)
	register(reminderPriorityTag, reminderPriorityText, AllPriorities)
	register(reminderTypeTag, reminderTypeText, AllReminderTypes)

	_ = validate.RegisterValidation(weekdaysTag, weekdaysValidation)
	core.RegisterCustomTranslation(validate, translator, weekdaysTag, weekdaysText)
}

// Custom Validators

func oneOfValidation(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, val := range values {
			if v == val {
				return true
			}
		}
		return false
	}
}

func weekdaysValidation(fl validator.FieldLevel) bool {
	days, ok := fl.Field().Interface().(Weekdays)
	if !ok {
		return false
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return false
		}
	}
	return true
}

// checkEvent validates the cross-field rules of a fully populated Event.
func checkEvent(ev Event) error {
	var flds []core.FieldError
	add := func(field, msg string) {
		flds = append(flds, core.FieldError{Field: field, Error: msg})
	}

	switch ev.EventType {
	case TypeDojo:
		if ev.DojoID == nil {
			add("dojo_id", "dojo events must belong to a dojo")
		}
	case TypeAdmin:
		if ev.DojoID != nil {
			add("dojo_id", "admin events cannot belong to a dojo")
		}
	}
	if ev.EndDatetime.Before(ev.StartDatetime) {
		add("end_datetime", "end date must be after start date")
	}
	if ev.IsRecurring {
		if ev.RecurrencePattern == "" {
			add("recurrence_pattern", "recurring events require a recurrence pattern")
		}
		flds = append(flds, ev.Rule().check()...)
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
