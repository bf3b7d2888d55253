package onboarding

// State tracks where a user is in profile collection. Free-form chat is
// gated until StateComplete.
type State int

const (
	StateNew State = iota
	StateAwaitingCampus
	StateAwaitingLevel
	StateAwaitingType
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateAwaitingCampus:
		return "awaiting_campus"
	case StateAwaitingLevel:
		return "awaiting_level"
	case StateAwaitingType:
		return "awaiting_type"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Draft is the ephemeral partial profile held while the machine is
// mid-sequence. It never outlives the onboarding flow that created it.
type Draft struct {
	State          State  `json:"state"`
	Campus         string `json:"campus,omitempty"`
	EducationLevel string `json:"education_level,omitempty"`
	EducationType  string `json:"education_type,omitempty"`
}

// Choice option lists rendered by the transport layer as keyboards.
var (
	Campuses = []string{"Пермь", "Нижний Новгород", "Москва", "Санкт-Петербург"}
	Levels   = []string{"Бакалавр", "Специалитет", "Магистр", "Аспирант"}
	Types    = []string{"Очный", "Заочный"}
)
