package devserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/response"
	"github.com/stemsi/exstem-client/internal/validator"
)

// Server is the in-memory stand-in for the exam backend. It exposes the
// REST and WebSocket surfaces the client depends on so full sessions can
// run locally with zero infrastructure.
type Server struct {
	Store  *Store
	engine *gin.Engine
	port   string
	log    zerolog.Logger
}

// New assembles the dev server: store, token service, handlers, routes.
func New(cfg *config.Config, log zerolog.Logger) *Server {
	validator.Setup()

	store := NewStore()
	tokens := NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	h := NewHandler(store, tokens, log)
	wsH := NewWSHandler(store, log, cfg.AllowedOrigins)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestID())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", h.StudentLogin)
	}

	student := router.Group("/api/v1/student")
	student.Use(RequireStudentJWT(tokens))
	{
		student.POST("/exams/:exam_id/start", h.StartAttempt)
		student.POST("/exams/:exam_id/answers", h.SaveAnswer)
		student.POST("/exams/:exam_id/submit", h.SubmitAttempt)
		student.GET("/exams/:exam_id/attempts/:attempt_id/result", h.GetResult)
	}

	stream := router.Group("/ws/v1/student")
	stream.Use(RequireStudentWSAuth(tokens))
	{
		stream.GET("/exams/:exam_id/stream", wsH.ExamStream)
	}

	return &Server{
		Store:  store,
		engine: router,
		port:   cfg.ServerPort,
		log:    log.With().Str("component", "devserver").Logger(),
	}
}

// Handler exposes the router for httptest-based tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run starts the HTTP listener and blocks.
func (s *Server) Run() error {
	s.log.Info().Str("port", s.port).Msg("Dev server listening")
	return s.engine.Run(":" + s.port)
}

// SeedDemo loads one student account and one exam so a client session can
// run immediately. Returns the seeded exam ID.
func (s *Server) SeedDemo(bcryptCost int) (uuid.UUID, error) {
	if _, err := s.Store.AddStudent("1234567890", "Demo Student", "password", bcryptCost); err != nil {
		return uuid.Nil, err
	}

	exam := &Exam{
		ID:              uuid.New(),
		Title:           "General Knowledge Demo",
		DurationMinutes: 30,
		AccessCode:      "LETMEIN",
		Shuffle:         true,
		Questions: []StoredQuestion{
			{
				Question: model.Question{
					ID:      uuid.New(),
					Type:    model.QuestionTypeSingleChoice,
					Content: "Which planet is closest to the sun?",
					Options: []model.Option{
						{ID: 1, Text: "Venus"},
						{ID: 2, Text: "Mercury"},
						{ID: 3, Text: "Mars"},
					},
					Points: 10,
				},
				CorrectOptionIDs: []int{2},
			},
			{
				Question: model.Question{
					ID:      uuid.New(),
					Type:    model.QuestionTypeMultipleChoice,
					Content: "Select every prime number.",
					Options: []model.Option{
						{ID: 1, Text: "2"},
						{ID: 2, Text: "4"},
						{ID: 3, Text: "7"},
						{ID: 4, Text: "9"},
					},
					Points: 10,
				},
				CorrectOptionIDs: []int{1, 3},
			},
			{
				Question: model.Question{
					ID:      uuid.New(),
					Type:    model.QuestionTypeFillInBlank,
					Content: "Water freezes at ___ degrees Celsius.",
					Points:  5,
				},
				CorrectText: "0",
			},
			{
				Question: model.Question{
					ID:      uuid.New(),
					Type:    model.QuestionTypeEssay,
					Content: "Explain why the sky appears blue.",
					Points:  25,
				},
			},
		},
	}
	s.Store.AddExam(exam)

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("access_code", exam.AccessCode).
		Msg("Seeded demo student (NISN 1234567890 / password) and exam")
	return exam.ID, nil
}
