package docstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
)

type markRepository struct {
	store  core.DocumentStore
	logger core.Logger
}

var _ mark.Repository = (*markRepository)(nil) // interface compliance check

func NewMarkRepository(store core.DocumentStore, logger core.Logger) mark.Repository {
	return &markRepository{store: store, logger: logger}
}

func markPath(id string) string {
	return core.Path(core.MarksCollection, id)
}

func decodeMark(id string, rec core.Record) (mark.Mark, []string, error) {
	d := newDecoder(markPath(id), rec)
	m := mark.Mark{ID: id}

	var err error
	if m.StudentID, err = d.str("studentId", true); err != nil {
		return mark.Mark{}, nil, err
	}
	if m.SubjectID, err = d.str("subjectId", true); err != nil {
		return mark.Mark{}, nil, err
	}
	if m.TeacherID, err = d.str("teacherId", false); err != nil {
		return mark.Mark{}, nil, err
	}
	comment, err := d.str("comment", false)
	if err != nil {
		return mark.Mark{}, nil, err
	}
	if comment != "" {
		m.Comment = null.StringFrom(comment)
	}

	score, _, err := d.integer("score", true)
	if err != nil {
		return mark.Mark{}, nil, err
	}
	m.Score = int(score)
	grade, _, err := d.integer("grade", false)
	if err != nil {
		return mark.Mark{}, nil, err
	}
	m.Grade = int(grade)
	if m.Timestamp, _, err = d.integer("timestamp", false); err != nil {
		return mark.Mark{}, nil, err
	}
	return m, d.coerced, nil
}

func encodeMark(m mark.Mark) core.Record {
	rec := core.Record{
		"studentId": m.StudentID,
		"subjectId": m.SubjectID,
		"grade":     m.Grade,
		"score":     m.Score,
		"teacherId": m.TeacherID,
		"timestamp": m.Timestamp,
	}
	if m.Comment.Valid && m.Comment.String != "" {
		rec["comment"] = m.Comment.String
	}
	return rec
}

func (repo *markRepository) decode(id string, rec core.Record) (mark.Mark, error) {
	m, coerced, err := decodeMark(id, rec)
	if err != nil {
		return mark.Mark{}, err
	}
	warnCoerced(repo.logger, markPath(id), coerced)
	if (m.Score < mark.MinScore || m.Score > mark.MaxScore) && repo.logger != nil {
		repo.logger.Warn("stored score out of range", map[string]interface{}{"path": markPath(id), "score": m.Score})
	}
	return m, nil
}

func (repo *markRepository) decodeAll(recs map[string]core.Record) []mark.Mark {
	marks := make([]mark.Mark, 0, len(recs))
	for _, id := range sortedKeys(recs) {
		m, err := repo.decode(id, recs[id])
		if err != nil {
			skip(repo.logger, err)
			continue
		}
		marks = append(marks, m)
	}
	return marks
}

func (repo *markRepository) CreateMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	id, err := repo.store.Push(ctx, core.MarksCollection, encodeMark(m))
	if err != nil {
		return mark.Mark{}, err
	}
	m.ID = id
	return m, nil
}

func (repo *markRepository) GetMark(ctx context.Context, id string) (mark.Mark, error) {
	rec, err := repo.store.Get(ctx, markPath(id))
	if err != nil {
		if errors.Cause(err) == core.ErrNoRecord {
			return mark.Mark{}, mark.ErrNotFound
		}
		return mark.Mark{}, errors.Wrap(err, "reading mark")
	}
	return repo.decode(id, rec)
}

// UpdateMark merges the changes; an empty comment removes the stored one.
func (repo *markRepository) UpdateMark(ctx context.Context, id string, um mark.UpdateMark, timestamp int64) error {
	fields := core.Record{"timestamp": timestamp}
	if um.Score != nil {
		fields["score"] = *um.Score
	}
	if um.Comment != nil {
		if *um.Comment == "" {
			fields["comment"] = nil
		} else {
			fields["comment"] = *um.Comment
		}
	}
	return repo.store.Update(ctx, markPath(id), fields)
}

func (repo *markRepository) QueryMarksByStudent(ctx context.Context, studentID string) ([]mark.Mark, error) {
	recs, err := repo.store.QueryEqual(ctx, core.MarksCollection, "studentId", studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	return repo.decodeAll(recs), nil
}

func (repo *markRepository) QueryAllMarks(ctx context.Context) ([]mark.Mark, error) {
	recs, err := repo.store.List(ctx, core.MarksCollection)
	if err != nil {
		return nil, errors.Wrap(err, "listing marks")
	}
	return repo.decodeAll(recs), nil
}
