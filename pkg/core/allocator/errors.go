package allocator

import "fmt"

// ConfigurationError reports a malformed constraint table or preassignment.
// It is raised before any allocation is attempted.
type ConfigurationError struct {
	Clinic string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Clinic == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error for clinic %s: %s", e.Clinic, e.Reason)
}

// DataIntegrityError reports input that violates the allocator's contract,
// e.g. a volunteer whose ranking does not cover every clinic.
type DataIntegrityError struct {
	Volunteer string
	Reason    string
}

func (e *DataIntegrityError) Error() string {
	if e.Volunteer == "" {
		return fmt.Sprintf("data integrity error: %s", e.Reason)
	}
	return fmt.Sprintf("data integrity error for volunteer %s: %s", e.Volunteer, e.Reason)
}

// Warning is a non-fatal observation about the input
type Warning struct {
	Volunteer string
	Message   string
}

func (w Warning) String() string {
	if w.Volunteer == "" {
		return w.Message
	}
	return w.Volunteer + ": " + w.Message
}
