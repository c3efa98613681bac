package application

import "context"

// Task is the payload of one queued "analyze this email" message.
type Task struct {
	EmailID     string `json:"application_email_id"`
	UserID      string `json:"user_id"`
	CreatedAt   string `json:"created_at"`
	StoragePath string `json:"storage_path,omitempty"`
}

// Extraction is the structured applicant data pulled out of one inbound
// rental-application email. It is written once into the tenant record's
// metadata; a partial write never happens.
type Extraction struct {
	PersonalInfo       PersonalInfo    `json:"personalInfo"`
	FinancialInfo      FinancialInfo   `json:"financialInfo"`
	HouseholdInfo      HouseholdInfo   `json:"householdInfo"`
	ApplicationInfo    ApplicationInfo `json:"applicationInfo"`
	RedFlags           []string        `json:"redFlags"`
	MissingInformation []string        `json:"missingInformation"`
}

type PersonalInfo struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	DateOfBirth    string `json:"dateOfBirth"`
	CurrentAddress string `json:"currentAddress"`
}

type FinancialInfo struct {
	MonthlyNetIncome float64 `json:"monthlyNetIncome"`
	EmploymentStatus string  `json:"employmentStatus"`
	Employer         string  `json:"employer"`
}

type HouseholdInfo struct {
	Adults   int  `json:"adults"`
	Children int  `json:"children"`
	Pets     bool `json:"pets"`
	Smoker   bool `json:"smoker"`
}

type ApplicationInfo struct {
	DesiredMoveInDate string `json:"desiredMoveInDate"`
	Sentiment         string `json:"sentiment"`
	// CompletenessScore grades the application 0-100, defaulting to 0
	CompletenessScore int `json:"completenessScore"`
}

// DisplayName joins the extracted first and last name for the top-level
// tenant column projection.
func (e *Extraction) DisplayName() string {
	first := e.PersonalInfo.FirstName
	last := e.PersonalInfo.LastName
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

// Repository resolves task metadata and persists extraction results, scoped
// by the originating application email id.
type Repository interface {
	// GetStoragePath looks up the object-storage path of the compressed email
	// body for tasks that arrive without one.
	GetStoragePath(ctx context.Context, emailID string) (string, error)
	// SaveExtraction merges the extraction into the tenant record's metadata
	// and projects name/email/phone into top-level columns when present. The
	// update is keyed by email id and safe to apply twice.
	SaveExtraction(ctx context.Context, emailID string, extraction *Extraction) error
}
