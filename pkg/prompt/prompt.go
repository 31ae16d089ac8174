// Package prompt normalizes heterogeneous user context documents into the
// system instruction given to the model. Upstream documents differ in field
// naming and nesting, so every logical field is resolved through an ordered
// alias list with a placeholder fallback; normalization never fails.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	placeholderName        = "Student"
	placeholderRole        = "Student"
	placeholderValue       = "N/A"
	placeholderCourseTitle = "Unknown Course"

	noCoursesSentinel     = "None found."
	noAssignmentsSentinel = "No upcoming assignments."
)

const template = `You are the College Hub AI Assistant. You provide personalized academic guidance.

--- USER CONTEXT ---
Name: %s
Role: %s
Institution: %s at %s

Current Courses:
%s

Upcoming Assignments:
%s
--- END CONTEXT ---
Instructions: Respond helpfully and professionally, using the context above.`

// Enrollment is the canonical shape of one course enrollment.
type Enrollment struct {
	CourseTitle  string
	CourseCode   string
	InstructorID string
	// Grades carries the enrollment's grade/assignment sub-list forward
	// as-is; entries stay heterogeneous until rendering.
	Grades []any
}

// Profile is the canonical user context after normalization.
type Profile struct {
	Name        string
	Role        string
	University  string
	College     string
	Enrollments []Enrollment
}

// Build renders the system prompt for a raw context document.
func Build(doc map[string]any) string {
	return Normalize(doc).Render()
}

// Normalize converts a raw upstream context document into a Profile,
// defaulting every missing field. Same input always yields the same Profile.
func Normalize(doc map[string]any) Profile {
	p := Profile{
		Name:       firstString(doc, "first_name", "username", "name"),
		Role:       firstString(doc, "role", "user_role"),
		University: institutionName(doc, "university", "universityName", "university_name"),
		College:    institutionName(doc, "college", "collegeName", "college_name"),
	}
	if p.Name == "" {
		p.Name = placeholderName
	}
	if p.Role == "" {
		p.Role = placeholderRole
	}

	p.Enrollments = normalizeEnrollments(doc)
	return p
}

// Render produces the fixed natural-language instruction block.
func (p Profile) Render() string {
	var courses []string
	var assignments []string

	for _, e := range p.Enrollments {
		if e.CourseCode != "" && e.CourseCode != placeholderValue {
			courses = append(courses, fmt.Sprintf("- %s: %s (Instructor ID: %s)", e.CourseCode, e.CourseTitle, e.InstructorID))
		}

		for _, entry := range e.Grades {
			grade, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			// Two accepted shapes: a wrapper holding an `assignment`
			// sub-object plus the score, or a flat assignment object.
			assignment := grade
			if inner, ok := grade["assignment"].(map[string]any); ok {
				assignment = inner
			}
			assignments = append(assignments, fmt.Sprintf(
				"- Assignment: %s, Course: %s, Due: %s, Score: %s / %s",
				fieldOrPlaceholder(assignment, "title"),
				e.CourseCode,
				fieldOrPlaceholder(assignment, "due_date"),
				fieldOrPlaceholder(grade, "points_earned"),
				fieldOrPlaceholder(assignment, "max_points"),
			))
		}
	}

	courseBlock := noCoursesSentinel
	if len(courses) > 0 {
		courseBlock = strings.Join(courses, "\n")
	}
	assignmentBlock := noAssignmentsSentinel
	if len(assignments) > 0 {
		assignmentBlock = strings.Join(assignments, "\n")
	}

	return fmt.Sprintf(template, p.Name, p.Role, p.College, p.University, courseBlock, assignmentBlock)
}

func normalizeEnrollments(doc map[string]any) []Enrollment {
	if doc == nil {
		return nil
	}

	// Canonical shape: academicSchedule with courseDetails sub-objects.
	if schedule, ok := doc["academicSchedule"].([]any); ok {
		enrollments := make([]Enrollment, 0, len(schedule))
		for _, entry := range schedule {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			course, _ := m["courseDetails"].(map[string]any)
			e := Enrollment{
				CourseTitle:  firstString(course, "title"),
				CourseCode:   firstString(course, "course_code"),
				InstructorID: firstString(m, "instructor_id"),
			}
			applyEnrollmentDefaults(&e)
			e.Grades, _ = m["grades"].([]any)
			enrollments = append(enrollments, e)
		}
		return enrollments
	}

	// Alternate shape: a flat academics list with differently named fields
	// and the assignment sub-list carried forward as-is.
	if academics, ok := doc["academics"].([]any); ok {
		enrollments := make([]Enrollment, 0, len(academics))
		for _, entry := range academics {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			e := Enrollment{
				CourseTitle: firstString(m, "name", "title", "course_name"),
				CourseCode:  firstString(m, "code", "course_code", "courseCode"),
			}
			applyEnrollmentDefaults(&e)
			e.Grades, _ = m["assignments"].([]any)
			enrollments = append(enrollments, e)
		}
		return enrollments
	}

	return nil
}

func applyEnrollmentDefaults(e *Enrollment) {
	if e.CourseTitle == "" {
		e.CourseTitle = placeholderCourseTitle
	}
	if e.CourseCode == "" {
		e.CourseCode = placeholderValue
	}
	if e.InstructorID == "" {
		e.InstructorID = placeholderValue
	}
}

// institutionName prefers a nested object's `name` field, then the flat
// alternate-named fields.
func institutionName(doc map[string]any, nestedKey string, flatKeys ...string) string {
	if nested, ok := doc[nestedKey].(map[string]any); ok {
		if name := firstString(nested, "name"); name != "" {
			return name
		}
		return placeholderValue
	}
	if name := firstString(doc, flatKeys...); name != "" {
		return name
	}
	return placeholderValue
}

// firstString probes keys in order and returns the first non-empty value,
// rendered as a string.
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := stringValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func fieldOrPlaceholder(m map[string]any, key string) string {
	if s := stringValue(m[key]); s != "" {
		return s
	}
	return placeholderValue
}

// stringValue renders the scalar JSON values that appear in context
// documents. Numbers come out of encoding/json as float64.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
