package devserver

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/exstem-client/internal/model"
)

// Store errors.
var (
	ErrExamNotFound     = errors.New("devserver: exam not found")
	ErrAttemptNotFound  = errors.New("devserver: attempt not found")
	ErrStudentNotFound  = errors.New("devserver: student not found")
	ErrAlreadySubmitted = errors.New("devserver: attempt already submitted")
)

// StoredQuestion is a question plus its answer key, which is never sent
// to students.
type StoredQuestion struct {
	model.Question
	CorrectOptionIDs []int
	CorrectText      string // fill-in-blank key
}

// Exam is a server-side exam definition.
type Exam struct {
	ID              uuid.UUID
	Title           string
	DurationMinutes int
	AccessCode      string // empty means no code required
	Shuffle         bool
	Questions       []StoredQuestion
}

// Attempt is one student's run, including progressively saved answers.
type Attempt struct {
	ID             uuid.UUID
	ExamID         uuid.UUID
	StudentID      int
	StartedAt      time.Time
	Order          []uuid.UUID // question order fixed at start
	Answers        map[uuid.UUID]model.Answer
	Violations     int
	PenaltyPoints  float64
	SnapshotsTaken int
	Submitted      bool
	Result         *model.Result
}

// Student is a seeded dev account.
type Student struct {
	ID           int
	NISN         string
	Name         string
	PasswordHash string
}

// Store is the in-memory state of the dev server. The real backend owns
// all durable state; this store exists so the client runs against a live
// transport with zero infrastructure.
type Store struct {
	mu            sync.Mutex
	rng           *rand.Rand
	exams         map[uuid.UUID]*Exam
	attempts      map[uuid.UUID]*Attempt
	byExamStudent map[string]*Attempt
	students      map[string]*Student
	nextStudentID int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		exams:         make(map[uuid.UUID]*Exam),
		attempts:      make(map[uuid.UUID]*Attempt),
		byExamStudent: make(map[string]*Attempt),
		students:      make(map[string]*Student),
	}
}

// AddStudent seeds one student account with a bcrypt-hashed password.
func (s *Store) AddStudent(nisn, name, password string, bcryptCost int) (*Student, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStudentID++
	st := &Student{
		ID:           s.nextStudentID,
		NISN:         nisn,
		Name:         name,
		PasswordHash: string(hash),
	}
	s.students[nisn] = st
	return st, nil
}

// Authenticate checks a NISN/password pair.
func (s *Store) Authenticate(nisn, password string) (*Student, error) {
	s.mu.Lock()
	st, ok := s.students[nisn]
	s.mu.Unlock()
	if !ok {
		return nil, ErrStudentNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)); err != nil {
		return nil, ErrStudentNotFound
	}
	return st, nil
}

// AddExam registers an exam definition.
func (s *Store) AddExam(exam *Exam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams[exam.ID] = exam
}

// Exam looks up an exam by ID.
func (s *Store) Exam(id uuid.UUID) (*Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exam, ok := s.exams[id]
	if !ok {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

// StartAttempt creates (or resumes) the student's attempt at an exam.
// Joining twice returns the existing attempt with its original question
// order, so a reconnecting client cannot reshuffle.
func (s *Store) StartAttempt(exam *Exam, studentID int) *Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s:%d", exam.ID, studentID)
	if existing, ok := s.byExamStudent[key]; ok && !existing.Submitted {
		return existing
	}

	order := make([]uuid.UUID, len(exam.Questions))
	for i := range exam.Questions {
		order[i] = exam.Questions[i].ID
	}
	if exam.Shuffle {
		s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	attempt := &Attempt{
		ID:        uuid.New(),
		ExamID:    exam.ID,
		StudentID: studentID,
		StartedAt: time.Now(),
		Order:     order,
		Answers:   make(map[uuid.UUID]model.Answer),
	}
	s.attempts[attempt.ID] = attempt
	s.byExamStudent[key] = attempt
	return attempt
}

// Attempt looks up an attempt by ID.
func (s *Store) Attempt(id uuid.UUID) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

// ActiveAttempt finds the student's unsubmitted attempt at an exam.
func (s *Store) ActiveAttempt(examID uuid.UUID, studentID int) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.byExamStudent[fmt.Sprintf("%s:%d", examID, studentID)]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

// SaveAnswer upserts one progressively saved answer.
func (s *Store) SaveAnswer(attemptID uuid.UUID, ans model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return ErrAttemptNotFound
	}
	if attempt.Submitted {
		return ErrAlreadySubmitted
	}
	attempt.Answers[ans.QuestionID] = ans
	return nil
}

// RecordViolation increments an attempt's violation counter and returns
// the new count.
func (s *Store) RecordViolation(attemptID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return 0, ErrAttemptNotFound
	}
	attempt.Violations++
	return attempt.Violations, nil
}

// RecordSnapshot counts a received identity snapshot.
func (s *Store) RecordSnapshot(attemptID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt, ok := s.attempts[attemptID]; ok {
		attempt.SnapshotsTaken++
	}
}

// ApplyPenalty deducts points from an attempt at most once and reports
// whether the deduction was applied now.
func (s *Store) ApplyPenalty(attemptID uuid.UUID, points float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.Submitted || attempt.PenaltyPoints > 0 {
		return false
	}
	attempt.PenaltyPoints = points
	return true
}
