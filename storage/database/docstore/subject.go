package docstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/subject"
)

type subjectRepository struct {
	store  core.DocumentStore
	logger core.Logger
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(store core.DocumentStore, logger core.Logger) subject.Repository {
	return &subjectRepository{store: store, logger: logger}
}

func subjectPath(id string) string {
	return core.Path(core.SubjectsCollection, id)
}

func decodeSubject(id string, rec core.Record) (subject.Subject, []string, error) {
	d := newDecoder(subjectPath(id), rec)
	sub := subject.Subject{ID: id}

	var err error
	if sub.Name, err = d.str("name", true); err != nil {
		return subject.Subject{}, nil, err
	}
	grade, _, err := d.integer("grade", false)
	if err != nil {
		return subject.Subject{}, nil, err
	}
	sub.Grade = int(grade)
	return sub, d.coerced, nil
}

func encodeSubject(sub subject.Subject) core.Record {
	return core.Record{"name": sub.Name, "grade": sub.Grade}
}

func (repo *subjectRepository) decode(id string, rec core.Record) (subject.Subject, error) {
	sub, coerced, err := decodeSubject(id, rec)
	if err != nil {
		return subject.Subject{}, err
	}
	warnCoerced(repo.logger, subjectPath(id), coerced)
	return sub, nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	id, err := repo.store.Push(ctx, core.SubjectsCollection, encodeSubject(sub))
	if err != nil {
		return subject.Subject{}, err
	}
	sub.ID = id
	return sub, nil
}

func (repo *subjectRepository) GetSubject(ctx context.Context, id string) (subject.Subject, error) {
	rec, err := repo.store.Get(ctx, subjectPath(id))
	if err != nil {
		if errors.Cause(err) == core.ErrNoRecord {
			return subject.Subject{}, subject.ErrNotFound
		}
		return subject.Subject{}, errors.Wrap(err, "reading subject")
	}
	return repo.decode(id, rec)
}

func (repo *subjectRepository) QueryAllSubjects(ctx context.Context) ([]subject.Subject, error) {
	recs, err := repo.store.List(ctx, core.SubjectsCollection)
	if err != nil {
		return nil, errors.Wrap(err, "listing subjects")
	}
	subjects := make([]subject.Subject, 0, len(recs))
	for _, id := range sortedKeys(recs) {
		sub, err := repo.decode(id, recs[id])
		if err != nil {
			skip(repo.logger, err)
			continue
		}
		subjects = append(subjects, sub)
	}
	return subjects, nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, id string, us subject.UpdateSubject) error {
	fields := core.Record{}
	if us.Name != nil {
		fields["name"] = *us.Name
	}
	if us.Grade != nil {
		fields["grade"] = *us.Grade
	}
	return repo.store.Update(ctx, subjectPath(id), fields)
}

// DeleteSubject removes the subject and its marks in one multi-path write.
// A mark added between the query and the write is not removed.
func (repo *subjectRepository) DeleteSubject(ctx context.Context, id string) (int, error) {
	marks, err := repo.store.QueryEqual(ctx, core.MarksCollection, "subjectId", id)
	if err != nil {
		return 0, errors.Wrap(err, "querying marks")
	}

	updates := map[string]interface{}{subjectPath(id): nil}
	for key := range marks {
		updates[markPath(key)] = nil
	}
	if err := repo.store.UpdatePaths(ctx, updates); err != nil {
		return 0, err
	}
	return len(marks), nil
}
