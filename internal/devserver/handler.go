package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/api"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/response"
	"github.com/stemsi/exstem-client/internal/validator"
)

// Handler serves the student-facing REST surface of the dev server.
type Handler struct {
	store  *Store
	tokens *TokenService
	log    zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(store *Store, tokens *TokenService, log zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		tokens: tokens,
		log:    log.With().Str("component", "devserver").Logger(),
	}
}

type loginRequest struct {
	NISN     string `json:"nisn" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
func (h *Handler) StudentLogin(c *gin.Context) {
	var req loginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.store.Authenticate(req.NISN, req.Password)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(student.ID, student.Name)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, api.LoginResponse{
		Token:     token,
		StudentID: student.ID,
		Name:      student.Name,
	})
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/start
// Creates or resumes the student's attempt. Code-protected exams reject
// missing or wrong access codes with recoverable error codes.
func (h *Handler) StartAttempt(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.store.Exam(examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
		return
	}

	if exam.AccessCode != "" {
		if req.AccessCode == "" {
			response.Fail(c, http.StatusBadRequest, response.ErrAccessCodeRequired)
			return
		}
		if req.AccessCode != exam.AccessCode {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidAccessCode)
			return
		}
	}

	attempt := h.store.StartAttempt(exam, claims.UserID)

	h.log.Info().
		Str("exam_id", examID.String()).
		Str("attempt_id", attempt.ID.String()).
		Int("student_id", claims.UserID).
		Msg("Attempt started")

	response.Success(c, http.StatusOK, buildAttemptPayload(exam, attempt))
}

// buildAttemptPayload renders the attempt in its fixed question order
// with the answer keys stripped.
func buildAttemptPayload(exam *Exam, attempt *Attempt) *model.Attempt {
	byID := make(map[uuid.UUID]*StoredQuestion, len(exam.Questions))
	for i := range exam.Questions {
		byID[exam.Questions[i].ID] = &exam.Questions[i]
	}

	questions := make([]model.Question, 0, len(attempt.Order))
	for _, qid := range attempt.Order {
		if q, ok := byID[qid]; ok {
			questions = append(questions, q.Question)
		}
	}

	return &model.Attempt{
		ID:               attempt.ID,
		ExamID:           exam.ID,
		Title:            exam.Title,
		Questions:        questions,
		TimeLimitSeconds: exam.DurationMinutes * 60,
	}
}

// ownedAttempt resolves an attempt and verifies it belongs to the given
// exam and student.
// SECURITY: ownership failures are deliberately indistinguishable from
// not-found, so probing foreign attempt IDs reveals nothing.
func (h *Handler) ownedAttempt(attemptID, examID uuid.UUID, studentID int) (*Attempt, bool) {
	attempt, err := h.store.Attempt(attemptID)
	if err != nil || attempt.ExamID != examID || attempt.StudentID != studentID {
		return nil, false
	}
	return attempt, true
}

// SaveAnswer godoc
// POST /api/v1/student/exams/:exam_id/answers
// Progressive save: upserts one answer. The final submit payload stays
// authoritative regardless of which saves arrive.
func (h *Handler) SaveAnswer(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, ok := h.ownedAttempt(req.AttemptID, examID, claims.UserID); !ok {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}

	exam, err := h.store.Exam(examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
		return
	}

	ans := model.Answer{
		QuestionID: req.QuestionID,
		OptionID:   req.OptionID,
		OptionIDs:  req.OptionIDs,
		Text:       req.Text,
	}
	if code := checkAnswerShape(exam, &ans); code != "" {
		response.Fail(c, http.StatusBadRequest, code)
		return
	}

	if err := h.store.SaveAnswer(req.AttemptID, ans); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// checkAnswerShape validates that the question belongs to the exam and the
// value shape matches its type. Returns an error code or "".
func checkAnswerShape(exam *Exam, ans *model.Answer) response.ErrCode {
	var q *StoredQuestion
	for i := range exam.Questions {
		if exam.Questions[i].ID == ans.QuestionID {
			q = &exam.Questions[i]
			break
		}
	}
	if q == nil {
		return response.ErrQuestionNotInExam
	}

	switch q.Type {
	case model.QuestionTypeSingleChoice:
		if ans.OptionID == nil || !q.HasOption(*ans.OptionID) {
			return response.ErrAnswerTypeMismatch
		}
	case model.QuestionTypeMultipleChoice:
		if len(ans.OptionIDs) == 0 {
			return response.ErrAnswerTypeMismatch
		}
		seen := make(map[int]bool, len(ans.OptionIDs))
		for _, id := range ans.OptionIDs {
			if seen[id] || !q.HasOption(id) {
				return response.ErrAnswerTypeMismatch
			}
			seen[id] = true
		}
	case model.QuestionTypeEssay, model.QuestionTypeFillInBlank:
		if ans.OptionID != nil || len(ans.OptionIDs) > 0 {
			return response.ErrAnswerTypeMismatch
		}
	}
	return ""
}

// SubmitAttempt godoc
// POST /api/v1/student/exams/:exam_id/submit
// Grades and freezes the attempt. Irrevocable.
func (h *Handler) SubmitAttempt(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, ok := h.ownedAttempt(req.AttemptID, examID, claims.UserID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}

	result, err := h.store.SubmitAttempt(req.AttemptID, req.Answers)
	if err != nil {
		response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
		return
	}

	h.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Float64("score", result.Score).
		Float64("max_score", result.MaxScore).
		Msg("Attempt submitted and graded")

	response.Success(c, http.StatusOK, result)
}

// GetResult godoc
// GET /api/v1/student/exams/:exam_id/attempts/:attempt_id/result
func (h *Handler) GetResult(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, ok := h.ownedAttempt(attemptID, examID, claims.UserID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}
	if attempt.Result == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, attempt.Result)
}
