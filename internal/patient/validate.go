package patient

import (
	"strconv"
	"strings"
	"time"
)

// validateCreate trims req in place and returns field errors, or nil.
func validateCreate(req *CreatePatientRequest, now time.Time) *ValidationError {
	fields := map[string]string{}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Gender = strings.ToUpper(strings.TrimSpace(req.Gender))
	req.BirthDate = strings.TrimSpace(req.BirthDate)
	req.Address = strings.TrimSpace(req.Address)
	req.Phone = strings.TrimSpace(req.Phone)

	required := func(name, v string, max int) {
		switch {
		case v == "":
			fields[name] = "This field is required."
		case max > 0 && len([]rune(v)) > max:
			fields[name] = "Ensure this field has no more than " + strconv.Itoa(max) + " characters."
		}
	}
	required("first_name", req.FirstName, maxNameLen)
	required("last_name", req.LastName, maxNameLen)
	required("address", req.Address, 0)
	required("phone", req.Phone, maxPhoneLen)

	switch req.Gender {
	case GenderMale, GenderFemale:
	case "":
		fields["gender"] = "This field is required."
	default:
		fields["gender"] = `"` + req.Gender + `" is not a valid choice.`
	}

	if req.BirthDate == "" {
		fields["birth_date"] = "This field is required."
	} else if d, err := time.Parse(dateLayout, req.BirthDate); err != nil {
		fields["birth_date"] = "Date has wrong format. Use YYYY-MM-DD."
	} else if d.After(now) {
		fields["birth_date"] = "Birth date cannot be in the future."
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
