package models

import (
	"encoding/json"
	"time"
)

// Logical section names as exposed by the API and carried in PROFILE_UPDATE
// request payloads.
const (
	SectionPersonal  = "personal"
	SectionFamily    = "family"
	SectionEducation = "education"
	SectionMedical   = "medical"
	SectionOthers    = "others"
	SectionLeave     = "leave"
	SectionSalary    = "salary"
	SectionDocuments = "documents"
)

// sectionColumns maps logical section names onto user_profiles columns.
// The personal/leave/salary sections have historically different stored names.
var sectionColumns = map[string]string{
	SectionPersonal:  "personal_details",
	SectionFamily:    "family",
	SectionEducation: "education",
	SectionMedical:   "medical",
	SectionOthers:    "others",
	SectionLeave:     "leave_data",
	SectionSalary:    "salary_data",
	SectionDocuments: "documents",
}

// SectionColumn resolves a logical section name to its storage column.
// The second return value is false for unknown sections.
func SectionColumn(section string) (string, bool) {
	column, ok := sectionColumns[section]
	return column, ok
}

// Sections returns all logical section names
func Sections() []string {
	return []string{
		SectionPersonal,
		SectionFamily,
		SectionEducation,
		SectionMedical,
		SectionOthers,
		SectionLeave,
		SectionSalary,
		SectionDocuments,
	}
}

// Profile is the per-user personnel record. Each section is an opaque JSON
// document owned by the corresponding form; nil means the section was never
// written. A profile row is created lazily on the first section write.
type Profile struct {
	UserID          string          `json:"userId"`
	PersonalDetails json.RawMessage `json:"personalDetails,omitempty"`
	Family          json.RawMessage `json:"family,omitempty"`
	Education       json.RawMessage `json:"education,omitempty"`
	Medical         json.RawMessage `json:"medical,omitempty"`
	Others          json.RawMessage `json:"others,omitempty"`
	LeaveData       json.RawMessage `json:"leaveData,omitempty"`
	SalaryData      json.RawMessage `json:"salaryData,omitempty"`
	Documents       json.RawMessage `json:"documents,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Section returns the stored value of a logical section
func (p *Profile) Section(section string) json.RawMessage {
	switch section {
	case SectionPersonal:
		return p.PersonalDetails
	case SectionFamily:
		return p.Family
	case SectionEducation:
		return p.Education
	case SectionMedical:
		return p.Medical
	case SectionOthers:
		return p.Others
	case SectionLeave:
		return p.LeaveData
	case SectionSalary:
		return p.SalaryData
	case SectionDocuments:
		return p.Documents
	}
	return nil
}

// SectionObject decodes a section into a generic JSON object. Absent or
// malformed sections (anything that is not a JSON object) decode to an empty
// map so callers can merge into them safely.
func (p *Profile) SectionObject(section string) map[string]interface{} {
	raw := p.Section(section)
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return map[string]interface{}{}
	}
	return obj
}
