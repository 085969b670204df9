package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/sma-assignments-api/internal/models"
)

// AssignmentsCollection is the collection holding assignment documents with embedded submissions.
const AssignmentsCollection = "assignments"

type assignmentDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	SubjectName string               `bson:"subjectName"`
	ClassName   string               `bson:"className"`
	TeacherName string               `bson:"teacherName"`
	DueDate     time.Time            `bson:"dueDate"`
	Document    string               `bson:"document,omitempty"`
	Submissions []submissionDocument `bson:"submissions"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type submissionDocument struct {
	ID          string    `bson:"id"`
	StudentID   string    `bson:"studentId"`
	FilePath    string    `bson:"filePath"`
	SubmittedAt time.Time `bson:"submittedAt"`
	Grade       *float64  `bson:"grade,omitempty"`
	Feedback    *string   `bson:"feedback,omitempty"`
}

func (d assignmentDocument) toModel(filter *models.AssignmentFilter) models.Assignment {
	a := models.Assignment{
		ID:              d.ID.Hex(),
		SubjectName:     d.SubjectName,
		ClassName:       d.ClassName,
		TeacherName:     d.TeacherName,
		DueDate:         d.DueDate.UTC(),
		Document:        d.Document,
		SubmissionCount: len(d.Submissions),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
	if filter != nil && !filter.IncludeSubmissions {
		return a
	}
	for _, s := range d.Submissions {
		if filter != nil && filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		a.Submissions = append(a.Submissions, models.Submission{
			ID:           s.ID,
			AssignmentID: a.ID,
			StudentID:    s.StudentID,
			FilePath:     s.FilePath,
			SubmittedAt:  s.SubmittedAt.UTC(),
			Grade:        s.Grade,
			Feedback:     s.Feedback,
		})
	}
	return a
}

// AssignmentMongoRepository stores each assignment as one document with its submissions embedded,
// so every submission write is a single-document atomic update.
type AssignmentMongoRepository struct {
	coll *mongo.Collection
}

// NewAssignmentMongoRepository constructs the repository over the given database.
func NewAssignmentMongoRepository(db *mongo.Database) *AssignmentMongoRepository {
	return &AssignmentMongoRepository{coll: db.Collection(AssignmentsCollection)}
}

// EnsureIndexes creates the indexes listing relies on.
func (r *AssignmentMongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create assignment indexes: %w", err)
	}
	return nil
}

// Create inserts a new assignment document.
func (r *AssignmentMongoRepository) Create(ctx context.Context, a *models.Assignment) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	doc := assignmentDocument{
		ID:          primitive.NewObjectID(),
		SubjectName: a.SubjectName,
		ClassName:   a.ClassName,
		TeacherName: a.TeacherName,
		DueDate:     a.DueDate,
		Document:    a.Document,
		Submissions: []submissionDocument{},
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	a.ID = doc.ID.Hex()
	return nil
}

// GetByID loads one assignment with all of its submissions.
func (r *AssignmentMongoRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	var doc assignmentDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	a := doc.toModel(nil)
	return &a, nil
}

// List returns every assignment, newest first.
func (r *AssignmentMongoRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []assignmentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode assignments: %w", err)
	}
	items := make([]models.Assignment, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toModel(&filter))
	}
	return items, nil
}

// Update applies the non-nil metadata changes. An empty document reference removes the field.
func (r *AssignmentMongoRepository) Update(ctx context.Context, id string, changes models.AssignmentChanges) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidID
	}
	updatedAt := changes.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set := bson.M{"updatedAt": updatedAt}
	update := bson.M{}
	if changes.SubjectName != nil {
		set["subjectName"] = *changes.SubjectName
	}
	if changes.ClassName != nil {
		set["className"] = *changes.ClassName
	}
	if changes.TeacherName != nil {
		set["teacherName"] = *changes.TeacherName
	}
	if changes.DueDate != nil {
		set["dueDate"] = *changes.DueDate
	}
	if changes.Document != nil {
		if *changes.Document == "" {
			update["$unset"] = bson.M{"document": ""}
		} else {
			set["document"] = *changes.Document
		}
	}
	update["$set"] = set

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// Delete removes the assignment document together with its embedded submissions.
func (r *AssignmentMongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidID
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// UpsertSubmission replaces the student's existing submission in place or appends a new one.
// Both branches are conditional single-document updates, so two concurrent submissions by the
// same student can never both append.
func (r *AssignmentMongoRepository) UpsertSubmission(ctx context.Context, assignmentID string, sub *models.Submission) (string, error) {
	oid, err := primitive.ObjectIDFromHex(assignmentID)
	if err != nil {
		return "", models.ErrInvalidID
	}
	sub.AssignmentID = assignmentID

	for attempt := 0; attempt < 2; attempt++ {
		replace := bson.M{"$set": bson.M{
			"submissions.$.filePath":    sub.FilePath,
			"submissions.$.submittedAt": sub.SubmittedAt,
			"updatedAt":                 sub.SubmittedAt,
		}}
		var before assignmentDocument
		err := r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "submissions.studentId": sub.StudentID},
			replace,
			options.FindOneAndUpdate().SetReturnDocument(options.Before),
		).Decode(&before)
		if err == nil {
			for _, existing := range before.Submissions {
				if existing.StudentID == sub.StudentID {
					sub.ID = existing.ID
					sub.Grade = existing.Grade
					sub.Feedback = existing.Feedback
					return existing.FilePath, nil
				}
			}
			return "", nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("replace submission: %w", err)
		}

		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		push := bson.M{
			"$push": bson.M{"submissions": submissionDocument{
				ID:          sub.ID,
				StudentID:   sub.StudentID,
				FilePath:    sub.FilePath,
				SubmittedAt: sub.SubmittedAt,
			}},
			"$set": bson.M{"updatedAt": sub.SubmittedAt},
		}
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": oid, "submissions.studentId": bson.M{"$ne": sub.StudentID}},
			push,
		)
		if err != nil {
			return "", fmt.Errorf("append submission: %w", err)
		}
		if res.MatchedCount == 1 {
			return "", nil
		}
		// Either the assignment is gone or a concurrent request appended first; the replace branch
		// resolves the latter on the next pass.
		sub.ID = ""
	}
	return "", models.ErrRecordNotFound
}

// GradeSubmission sets grade and feedback of one embedded submission in place.
func (r *AssignmentMongoRepository) GradeSubmission(ctx context.Context, assignmentID, submissionID string, grade *float64, feedback *string) error {
	oid, err := primitive.ObjectIDFromHex(assignmentID)
	if err != nil {
		return models.ErrInvalidID
	}
	if _, err := uuid.Parse(submissionID); err != nil {
		return models.ErrInvalidID
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "submissions.id": submissionID},
		bson.M{"$set": bson.M{
			"submissions.$.grade":    grade,
			"submissions.$.feedback": feedback,
		}},
	)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}
