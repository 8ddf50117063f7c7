package analytics

import "time"

type (
	GrowthPoint struct {
		Month string `json:"month"` // YYYY-MM
		Users int    `json:"users"` // users registered by the end of the month
	}

	AdminReport struct {
		TotalUsers        int           `json:"total_users"`
		TotalStudents     int           `json:"total_students"`
		TotalInstructors  int           `json:"total_instructors"`
		TotalCourses      int           `json:"total_courses"`
		TotalAssessments  int           `json:"total_assessments"`
		TotalEnrollments  int           `json:"total_enrollments"`
		RecentEnrollments int           `json:"recent_enrollments"` // last 30 days
		UserGrowth        []GrowthPoint `json:"user_growth"`
	}

	CourseEnrollments struct {
		CourseID    string `json:"course_id"`
		Title       string `json:"title"`
		Enrollments int    `json:"enrollments"`
	}

	InstructorReport struct {
		TotalCourses     int `json:"total_courses"`
		TotalEnrollments int `json:"total_enrollments"`
		TotalAssessments int `json:"total_assessments"`
		// AverageRating is always null: courses are not rated.
		AverageRating *float64            `json:"average_rating"`
		Courses       []CourseEnrollments `json:"courses"`
	}

	ResultProgress struct {
		AssessmentID string    `json:"assessment_id"`
		CourseID     string    `json:"course_id"`
		Score        int       `json:"score"`
		TotalPoints  int       `json:"total_points"`
		Percentage   int       `json:"percentage"`
		SubmittedAt  time.Time `json:"submitted_at"`
	}

	StudentReport struct {
		EnrolledCourses      int `json:"enrolled_courses"`
		CompletedAssessments int `json:"completed_assessments"`
		// AverageScore is the rounded mean percentage, null without results.
		AverageScore   *int             `json:"average_score"`
		TotalStudyTime int              `json:"total_study_time"` // minutes
		Progress       []ResultProgress `json:"progress"`
	}

	StudentProgress struct {
		StudentID    string    `json:"student_id"`
		AssessmentID string    `json:"assessment_id"`
		Score        int       `json:"score"`
		Percentage   int       `json:"percentage"`
		SubmittedAt  time.Time `json:"submitted_at"`
	}

	CourseReport struct {
		CourseID     string `json:"course_id"`
		Title        string `json:"title"`
		Enrollments  int    `json:"enrollments"`
		Assessments  int    `json:"assessments"`
		AverageScore *int   `json:"average_score"`
		// CompletionRate is the share of enrolled students with at least one result, in percent.
		CompletionRate int               `json:"completion_rate"`
		Progress       []StudentProgress `json:"progress"`
	}
)
