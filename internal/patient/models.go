package patient

import (
	"time"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/pagination"
)

// Patient is a patient record. Every patient belongs to the user who created it.
type Patient struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Gender    string    `json:"gender"`
	BirthDate string    `json:"birth_date"` // YYYY-MM-DD
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePatientRequest represents the request to create a new patient
type CreatePatientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

// ListParams narrows a patient listing. Pagination applies only when Paginate is set.
type ListParams struct {
	Page     pagination.Params
	Paginate bool
	Search   string
}

const (
	GenderMale   = "M"
	GenderFemale = "F"

	maxNameLen  = 100
	maxPhoneLen = 20
	dateLayout  = "2006-01-02"
)
