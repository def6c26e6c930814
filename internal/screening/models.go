package screening

import "time"

// Result is the stored screening label.
type Result string

const (
	ResultPositive     Result = "P"
	ResultNegative     Result = "N"
	ResultInconclusive Result = "I" // manual override only, never derived
)

// PatientSummary is the patient identity embedded in screening responses.
type PatientSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Screening is a stored screening joined with its patient.
type Screening struct {
	ID            string
	Patient       PatientSummary
	ImageKey      string
	Result        Result
	ParasiteCount int
	Confidence    float64
	Notes         string
	CreatedAt     time.Time
}

// NewScreening is the row the intake service asks the repository to insert.
type NewScreening struct {
	PatientID     string
	ImageKey      string
	Result        Result
	ParasiteCount int
	Confidence    float64
	Notes         string
}

// ScreeningResponse is the serialized screening returned to clients.
type ScreeningResponse struct {
	ID            string         `json:"id"`
	Patient       PatientSummary `json:"patient"`
	Image         string         `json:"image"`
	Result        Result         `json:"result"`
	ParasiteCount int            `json:"parasite_count"`
	Confidence    float64        `json:"confidence"`
	Notes         string         `json:"notes"`
	CreatedAt     time.Time      `json:"created_at"`
}

// UploadInput is a parsed intake request. A nil Image means no file was sent.
type UploadInput struct {
	PatientID string
	Notes     string
	Image     []byte
	// ReadOnly lists server-derived fields the client tried to set.
	ReadOnly []string
}

// DashboardStats summarises the caller's screenings.
type DashboardStats struct {
	TodayCases   int         `json:"today_cases"`
	PositiveRate float64     `json:"positive_rate"`
	WeeklyTrend  WeeklyTrend `json:"weekly_trend"`
}

// WeeklyTrend holds the last seven days, oldest first.
type WeeklyTrend struct {
	Dates  []string `json:"dates"`
	Counts []int    `json:"counts"`
}

// Totals are the raw counts the dashboard is built from.
type Totals struct {
	Total     int
	Positives int
	// Daily maps YYYY-MM-DD to the number of screenings created that day.
	Daily map[string]int
}
