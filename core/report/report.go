// Package report assembles the printable academic report of a grade.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

// Score categories
const (
	CategoryHigh   = "high"
	CategoryMedium = "medium"
	CategoryLow    = "low"
)

const (
	dateLayout  = "1/2/2006"
	emptyMarker = "-"
)

//go:embed report.gohtml
var reportSrc string

var reportTmpl = template.Must(template.New("report").Parse(reportSrc))

// Data is everything a report is built from.
type Data struct {
	Grade       int
	Students    []user.Student
	Subjects    []subject.Subject
	Marks       []mark.Mark
	GeneratedAt time.Time
}

// Report is a generated report document.
type Report struct {
	Filename string
	HTML     string
}

type (
	page struct {
		Grade    int
		Date     string
		Sections []section
	}

	section struct {
		Name string
		Rows []row
	}

	row struct {
		Subject  string
		Score    int
		Category string
		Comment  string
		Date     string
	}
)

// Category classifies a score: high from 75, medium from 50, low below.
func Category(score int) string {
	switch {
	case score >= 75:
		return CategoryHigh
	case score >= 50:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

// Filename names the report of grade generated at t.
func Filename(grade int, t time.Time) string {
	return fmt.Sprintf("academic-report-grade-%d-%s.html", grade, t.Format("2006-01-02"))
}

// Generate renders the report: one section per student, one row per subject the student has a mark for.
// When several marks match a (student, subject) pair, the first one in d.Marks wins.
func Generate(d Data) (string, error) {
	loc := d.GeneratedAt.Location()
	p := page{
		Grade:    d.Grade,
		Date:     d.GeneratedAt.Format(dateLayout),
		Sections: make([]section, 0, len(d.Students)),
	}

	for _, student := range d.Students {
		sec := section{Name: student.Name}
		for _, sub := range d.Subjects {
			m, ok := findMark(d.Marks, student.ID, sub.ID)
			if !ok {
				continue
			}
			comment := emptyMarker
			if m.Comment.Valid && m.Comment.String != "" {
				comment = m.Comment.String
			}
			sec.Rows = append(sec.Rows, row{
				Subject:  sub.Name,
				Score:    m.Score,
				Category: Category(m.Score),
				Comment:  comment,
				Date:     m.Time().In(loc).Format(dateLayout),
			})
		}
		p.Sections = append(p.Sections, sec)
	}

	var buff bytes.Buffer
	if err := reportTmpl.Execute(&buff, p); err != nil {
		return "", errors.Wrap(err, "rendering report")
	}
	return buff.String(), nil
}

func findMark(marks []mark.Mark, studentID, subjectID string) (mark.Mark, bool) {
	for _, m := range marks {
		if m.StudentID == studentID && m.SubjectID == subjectID {
			return m, true
		}
	}
	return mark.Mark{}, false
}
