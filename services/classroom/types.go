package classroom

// Wire payloads, field names as sent by the Classroom REST API.

type coursesPage struct {
	Courses       []coursePayload `json:"courses"`
	NextPageToken string          `json:"nextPageToken"`
}

type coursePayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Section        string `json:"section"`
	Room           string `json:"room"`
	OwnerID        string `json:"ownerId"`
	CreationTime   string `json:"creationTime"`
	UpdateTime     string `json:"updateTime"`
	EnrollmentCode string `json:"enrollmentCode"`
	CourseState    string `json:"courseState"`
	AlternateLink  string `json:"alternateLink"`
}

type studentsPage struct {
	Students      []rosterPayload `json:"students"`
	NextPageToken string          `json:"nextPageToken"`
}

type teachersPage struct {
	Teachers      []rosterPayload `json:"teachers"`
	NextPageToken string          `json:"nextPageToken"`
}

type rosterPayload struct {
	UserID  string         `json:"userId"`
	Profile profilePayload `json:"profile"`
}

type profilePayload struct {
	ID           string      `json:"id"`
	Name         namePayload `json:"name"`
	EmailAddress string      `json:"emailAddress"`
	PhotoURL     string      `json:"photoUrl"`
}

type namePayload struct {
	FullName string `json:"fullName"`
}

type courseWorkPage struct {
	CourseWork    []courseWorkPayload `json:"courseWork"`
	NextPageToken string              `json:"nextPageToken"`
}

type courseWorkPayload struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	State         string       `json:"state"`
	AlternateLink string       `json:"alternateLink"`
	CreationTime  string       `json:"creationTime"`
	UpdateTime    string       `json:"updateTime"`
	DueDate       *datePayload `json:"dueDate"`
	DueTime       *timePayload `json:"dueTime"`
	MaxPoints     *float64     `json:"maxPoints"`
	WorkType      string       `json:"workType"`
}

type datePayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// timePayload keeps hours/minutes as pointers: the upstream omits zero
// fields and absence is significant downstream.
type timePayload struct {
	Hours   *int `json:"hours"`
	Minutes *int `json:"minutes"`
}

type submissionsPage struct {
	StudentSubmissions []submissionPayload `json:"studentSubmissions"`
	NextPageToken      string              `json:"nextPageToken"`
}

type submissionPayload struct {
	ID            string   `json:"id"`
	UserID        string   `json:"userId"`
	CreationTime  string   `json:"creationTime"`
	UpdateTime    string   `json:"updateTime"`
	State         string   `json:"state"`
	Late          bool     `json:"late"`
	DraftGrade    *float64 `json:"draftGrade"`
	AssignedGrade *float64 `json:"assignedGrade"`
	AlternateLink string   `json:"alternateLink"`
}
