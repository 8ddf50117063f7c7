package analytics

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/assessment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/user"
)

var (
	recentPeriod = 30 * 24 * time.Hour
	growthMonths = 4
)

// Service computes reports from stored data only.
type Service struct {
	usrRepo    user.Repository
	courseRepo course.Repository
	asmtRepo   assessment.Repository
}

func NewService(usrRepo user.Repository, courseRepo course.Repository, asmtRepo assessment.Repository) *Service {
	return &Service{
		usrRepo:    usrRepo,
		courseRepo: courseRepo,
		asmtRepo:   asmtRepo,
	}
}

func (svc *Service) Admin(ctx context.Context, p access.Principal) (AdminReport, error) {
	if err := access.Authorize(p, access.ActionAdminAnalytics); err != nil {
		return AdminReport{}, err
	}

	var (
		report AdminReport
		err    error
	)
	if report.TotalUsers, err = svc.usrRepo.CountUsers(ctx, user.CountFilter{}); err != nil {
		return AdminReport{}, errors.Wrap(err, "counting users")
	}
	if report.TotalStudents, err = svc.usrRepo.CountUsers(ctx, user.CountFilter{Role: access.RoleStudent}); err != nil {
		return AdminReport{}, errors.Wrap(err, "counting students")
	}
	if report.TotalInstructors, err = svc.usrRepo.CountUsers(ctx, user.CountFilter{Role: access.RoleInstructor}); err != nil {
		return AdminReport{}, errors.Wrap(err, "counting instructors")
	}
	if report.TotalCourses, err = svc.courseRepo.CountCourses(ctx, nil); err != nil {
		return AdminReport{}, errors.Wrap(err, "counting courses")
	}
	if report.TotalAssessments, err = svc.asmtRepo.CountAssessments(ctx, assessment.QueryFilter{}); err != nil {
		return AdminReport{}, errors.Wrap(err, "counting assessments")
	}
	if report.TotalEnrollments, err = svc.courseRepo.CountEnrollments(ctx, course.EnrollmentFilter{}); err != nil {
		return AdminReport{}, errors.Wrap(err, "counting enrollments")
	}

	now := core.NowFunc()
	report.RecentEnrollments, err = svc.courseRepo.CountEnrollments(ctx, course.EnrollmentFilter{EnrolledFrom: now.Add(-recentPeriod)})
	if err != nil {
		return AdminReport{}, errors.Wrap(err, "counting recent enrollments")
	}

	report.UserGrowth = make([]GrowthPoint, 0, growthMonths)
	for _, month := range lastMonths(now, growthMonths) {
		cnt, err := svc.usrRepo.CountUsers(ctx, user.CountFilter{CreatedBefore: month.AddDate(0, 1, 0)})
		if err != nil {
			return AdminReport{}, errors.Wrap(err, "counting users by month")
		}
		report.UserGrowth = append(report.UserGrowth, GrowthPoint{Month: month.Format("2006-01"), Users: cnt})
	}
	return report, nil
}

func (svc *Service) Instructor(ctx context.Context, p access.Principal) (InstructorReport, error) {
	if err := access.Authorize(p, access.ActionInstructorAnalytics); err != nil {
		return InstructorReport{}, err
	}

	courses, err := svc.courseRepo.QueryCourses(ctx, &course.QueryFilter{InstructorID: p.UserID}, nil)
	if err != nil {
		return InstructorReport{}, errors.Wrap(err, "querying courses")
	}

	report := InstructorReport{
		TotalCourses: len(courses),
		Courses:      make([]CourseEnrollments, 0, len(courses)),
	}
	for _, c := range courses {
		report.TotalEnrollments += c.EnrolledCount
		report.Courses = append(report.Courses, CourseEnrollments{CourseID: c.ID, Title: c.Title, Enrollments: c.EnrolledCount})
	}
	report.TotalAssessments, err = svc.asmtRepo.CountAssessments(ctx, assessment.QueryFilter{InstructorID: p.UserID})
	if err != nil {
		return InstructorReport{}, errors.Wrap(err, "counting assessments")
	}
	return report, nil
}

func (svc *Service) Student(ctx context.Context, p access.Principal) (StudentReport, error) {
	if err := access.Authorize(p, access.ActionStudentAnalytics); err != nil {
		return StudentReport{}, err
	}

	var (
		report StudentReport
		err    error
	)
	report.EnrolledCourses, err = svc.courseRepo.CountEnrollments(ctx, course.EnrollmentFilter{StudentID: p.UserID})
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "counting enrollments")
	}

	results, err := svc.asmtRepo.QueryResults(ctx, assessment.ResultFilter{StudentID: p.UserID})
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying results")
	}

	report.CompletedAssessments = len(results)
	report.Progress = make([]ResultProgress, 0, len(results))
	percentages := make([]int, 0, len(results))
	for _, r := range results {
		report.TotalStudyTime += r.TimeSpent
		percentages = append(percentages, r.Percentage)
		report.Progress = append(report.Progress, ResultProgress{
			AssessmentID: r.AssessmentID,
			CourseID:     r.CourseID,
			Score:        r.Score,
			TotalPoints:  r.TotalPoints,
			Percentage:   r.Percentage,
			SubmittedAt:  r.SubmittedAt,
		})
	}
	report.AverageScore = average(percentages)
	return report, nil
}

// Course reports on a course owned by p (or any course if p is an admin).
func (svc *Service) Course(ctx context.Context, p access.Principal, courseID string) (CourseReport, error) {
	c, err := svc.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		return CourseReport{}, err
	}
	if err = access.Authorize(p, access.ActionCourseAnalytics, c.InstructorID); err != nil {
		return CourseReport{}, err
	}

	report := CourseReport{CourseID: c.ID, Title: c.Title, Enrollments: c.EnrolledCount}
	report.Assessments, err = svc.asmtRepo.CountAssessments(ctx, assessment.QueryFilter{CourseID: c.ID})
	if err != nil {
		return CourseReport{}, errors.Wrap(err, "counting assessments")
	}

	results, err := svc.asmtRepo.QueryResults(ctx, assessment.ResultFilter{CourseID: c.ID})
	if err != nil {
		return CourseReport{}, errors.Wrap(err, "querying results")
	}

	students := make(map[string]struct{})
	percentages := make([]int, 0, len(results))
	report.Progress = make([]StudentProgress, 0, len(results))
	for _, r := range results {
		students[r.StudentID] = struct{}{}
		percentages = append(percentages, r.Percentage)
		report.Progress = append(report.Progress, StudentProgress{
			StudentID:    r.StudentID,
			AssessmentID: r.AssessmentID,
			Score:        r.Score,
			Percentage:   r.Percentage,
			SubmittedAt:  r.SubmittedAt,
		})
	}
	report.AverageScore = average(percentages)
	report.CompletionRate = completionRate(len(students), report.Enrollments)
	return report, nil
}

// lastMonths returns the first instant of the n months ending with the month of now, oldest first.
func lastMonths(now time.Time, n int) []time.Time {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]time.Time, n)
	for i := 0; i < n; i++ {
		months[i] = current.AddDate(0, i-n+1, 0)
	}
	return months
}

func average(values []int) *int {
	if len(values) == 0 {
		return nil
	}
	var sum int
	for _, v := range values {
		sum += v
	}
	avg := int(math.Round(float64(sum) / float64(len(values))))
	return &avg
}

// completionRate is capped at 100: results outlive the enrollments of deleted students.
func completionRate(completed, enrolled int) int {
	if enrolled == 0 {
		return 0
	}
	rate := int(math.Round(float64(completed) * 100 / float64(enrolled)))
	if rate > 100 {
		return 100
	}
	return rate
}
