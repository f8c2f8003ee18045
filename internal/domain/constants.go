package domain

// Roles carried in access tokens.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Enums is the public list of values the admin UI needs to build forms.
type Enums struct {
	ScheduleKinds  []ScheduleKind  `json:"scheduleKinds"`
	ExceptionKinds []ExceptionKind `json:"exceptionKinds"`
	Weekdays       []WeekdayName   `json:"weekdays"`
	Sources        []AppliedSource `json:"appliedSources"`
}

type WeekdayName struct {
	Value Weekday `json:"value"`
	Name  string  `json:"name"`
}

func ListEnums() Enums {
	names := make([]WeekdayName, 0, len(Weekdays))
	for _, wd := range Weekdays {
		names = append(names, WeekdayName{Value: wd, Name: wd.String()})
	}
	return Enums{
		ScheduleKinds:  ScheduleKinds,
		ExceptionKinds: ExceptionKinds,
		Weekdays:       names,
		Sources:        []AppliedSource{SourceSchedule, SourceBand, SourceException},
	}
}
