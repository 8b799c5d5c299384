package models

// RegistrationRequest is the body posted when enrolling an endpoint with the service.
type RegistrationRequest struct {
	ID string `json:"id"`
}
