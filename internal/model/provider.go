package model

// Provider is a credentialed clinician. Verified is only ever written by
// registry verification and gates assignment eligibility.
type Provider struct {
	Base
	FirstName         string `db:"first_name" json:"firstName"`
	LastName          string `db:"last_name" json:"lastName"`
	Name              string `db:"name" json:"name"`
	Email             string `db:"email" json:"email"`
	Specialization    string `db:"specialization" json:"specialization"`
	Taxonomy          string `db:"taxonomy" json:"taxonomy"`
	NPINumber         string `db:"npi_number" json:"npiNumber"`
	State             string `db:"state" json:"state"`
	LicenseNumber     string `db:"license_number" json:"licenseNumber"`
	LicenseExpiryDate Date   `db:"license_expiry_date" json:"licenseExpiryDate"`
	Verified          bool   `db:"verified" json:"verified"`
}

type CreateProviderRequest struct {
	FirstName         string `json:"firstName" binding:"required"`
	LastName          string `json:"lastName" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Email             string `json:"email" binding:"required,email"`
	Specialization    string `json:"specialization" binding:"required"`
	Taxonomy          string `json:"taxonomy" binding:"required"`
	NPINumber         string `json:"npiNumber" binding:"required"`
	State             string `json:"state" binding:"required"`
	LicenseNumber     string `json:"licenseNumber" binding:"required"`
	LicenseExpiryDate string `json:"licenseExpiryDate" binding:"required,calendar_date"`
}

const (
	VerificationVerified = "Verified"
	VerificationMismatch = "Mismatch"
)

// VerificationResult carries both sides of the registry comparison.
type VerificationResult struct {
	NPINumber         string `json:"npiNumber"`
	ProviderFirstName string `json:"providerFirstName"`
	ProviderLastName  string `json:"providerLastName"`
	ProviderState     string `json:"providerState"`
	NPPESFirstName    string `json:"nppesFirstName"`
	NPPESLastName     string `json:"nppesLastName"`
	NPPESState        string `json:"nppesState"`
	Status            string `json:"status"`
}

type LicenseStateCheck struct {
	NPINumber       string `json:"npiNumber"`
	ProviderName    string `json:"providerName"`
	ProviderState   string `json:"providerState"`
	LicensedInState bool   `json:"licensedInState"`
	NPPESStateMatch string `json:"nppesStateMatch"`
	Verified        bool   `json:"verified"`
}

// RegistryProvider is the summary returned by registry searches.
type RegistryProvider struct {
	NPINumber string            `json:"npiNumber"`
	Name      string            `json:"name"`
	State     string            `json:"state"`
	Address   map[string]string `json:"address"`
}
