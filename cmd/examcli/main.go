package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/stemsi/exstem-client/internal/api"
	"github.com/stemsi/exstem-client/internal/camera"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/logger"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/realtime"
	"github.com/stemsi/exstem-client/internal/session"
)

func main() {
	examFlag := flag.String("exam", "", "exam ID (UUID) to take")
	nisnFlag := flag.String("nisn", "", "student number; prompted if empty")
	practiceFlag := flag.Bool("practice", false, "practice mode: ungraded, no proctoring")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	examID, err := uuid.Parse(*examFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "usage: examcli -exam <uuid> [-nisn <number>] [-practice]")
		os.Exit(2)
	}

	if err := run(cfg, log, examID, *nisnFlag, *practiceFlag); err != nil {
		log.Fatal().Err(err).Msg("Session failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger, examID uuid.UUID, nisn string, practice bool) error {
	ctx := context.Background()
	stdin := bufio.NewReader(os.Stdin)

	if nisn == "" {
		nisn = promptLine(stdin, "Student number: ")
	}
	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}

	client := api.New(cfg.APIBaseURL, "", log)
	login, err := client.Login(ctx, nisn, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("Welcome, %s.\n", login.Name)

	wsURL := cfg.WSBaseURL + "/student/exams/" + examID.String() + "/stream"
	channel, err := realtime.Dial(ctx, wsURL, client.Token(), log)
	if err != nil {
		return fmt.Errorf("connect proctoring stream: %w", err)
	}
	defer channel.Close()

	cam := camera.NewFileCamera(cfg.CameraImagePath)
	watcher := session.NewAppStateWatcher()

	lines := make(chan string)
	notifier := &cliNotifier{lines: lines}

	ctrl, err := startWithAccessCode(ctx, cfg, log, examID, login.StudentID, practice, client, channel, cam, watcher, notifier)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	// One goroutine owns stdin from here on; the REPL and the confirmation
	// prompt both consume from the same line stream. Started only after the
	// access-code prompts are done reading the terminal.
	go func() {
		defer close(lines)
		for {
			line, err := stdin.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimSpace(line)
		}
	}()

	// Terminal suspend/resume stands in for the app leaving and regaining
	// the foreground; interrupt acts like the hardware back button.
	watchSignals(ctrl, watcher)

	runREPL(ctx, lines, ctrl)

	select {
	case <-ctrl.Done():
	default:
		return nil // stdin closed before the attempt reached a terminal state
	}

	printResult(ctx, client, examID, ctrl)
	return nil
}

// startWithAccessCode builds and starts the controller, re-prompting for
// the access code while the server reports it missing or wrong.
func startWithAccessCode(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
	examID uuid.UUID,
	studentID int,
	practice bool,
	client *api.Client,
	channel realtime.Channel,
	cam camera.Camera,
	watcher session.Lifecycle,
	notifier session.Notifier,
) (*session.Controller, error) {
	accessCode := ""
	for {
		ctrl := session.New(session.Config{
			ExamID:              examID,
			StudentID:           studentID,
			AccessCode:          accessCode,
			Practice:            practice,
			SnapshotMinInterval: cfg.SnapshotMinInterval,
			SnapshotMaxInterval: cfg.SnapshotMaxInterval,
			SnapshotStartDelay:  cfg.SnapshotStartDelay,
		}, client, channel, cam, watcher, notifier, log)

		err := ctrl.Start(ctx)
		switch {
		case err == nil:
			attempt := ctrl.Attempt()
			fmt.Printf("\n%s — %d questions, %s\n", attempt.Title, len(attempt.Questions),
				(time.Duration(attempt.TimeLimitSeconds) * time.Second).String())
			fmt.Println(`Type "help" for commands.`)
			return ctrl, nil

		case errors.Is(err, api.ErrAccessCodeRequired), errors.Is(err, api.ErrAccessCodeInvalid):
			if accessCode != "" {
				fmt.Println("That access code was not accepted.")
			}
			code, perr := promptSecret("Access code: ")
			if perr != nil {
				return nil, perr
			}
			accessCode = code

		default:
			return nil, err
		}
	}
}

// watchSignals maps process signals onto session events: SIGTSTP and
// SIGCONT drive the visibility watcher, SIGINT requests back navigation.
func watchSignals(ctrl *session.Controller, watcher *session.AppStateWatcher) {
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, syscall.SIGTSTP, syscall.SIGCONT, syscall.SIGINT)

	go func() {
		for sig := range sigs {
			switch sig {
			case syscall.SIGTSTP:
				watcher.SetState(session.StateBackground)
			case syscall.SIGCONT:
				watcher.SetState(session.StateActive)
			case syscall.SIGINT:
				if ctrl.BackRequested() {
					os.Exit(0)
				}
			}
		}
	}()
}

func runREPL(ctx context.Context, lines <-chan string, ctrl *session.Controller) {
	for {
		fmt.Print("> ")
		select {
		case <-ctrl.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if handleCommand(ctx, ctrl, line) {
				return
			}
		}
	}
}

// handleCommand executes one REPL line. Returns true when the session is
// over and the loop should exit.
func handleCommand(ctx context.Context, ctrl *session.Controller, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	attempt := ctrl.Attempt()

	switch cmd {
	case "":
	case "help":
		fmt.Println("commands: list | show <n> | answer <n> <value> | time | submit | quit")
		fmt.Println("answer values: option number, comma-separated numbers, or free text")

	case "list":
		for i := range attempt.Questions {
			q := &attempt.Questions[i]
			mark := " "
			if _, ok := ctrl.Answer(q.ID); ok {
				mark = "*"
			}
			fmt.Printf("%s %2d. [%s] %s\n", mark, i+1, q.Type, q.Content)
		}

	case "show":
		q := questionByNumber(attempt, rest)
		if q == nil {
			fmt.Println("no such question")
			return false
		}
		fmt.Printf("[%s] %s\n", q.Type, q.Content)
		for _, opt := range q.Options {
			fmt.Printf("  %d) %s\n", opt.ID, opt.Text)
		}
		if ans, ok := ctrl.Answer(q.ID); ok {
			fmt.Printf("current answer: %s\n", formatAnswer(ans))
		}

	case "answer":
		numStr, value, _ := strings.Cut(rest, " ")
		q := questionByNumber(attempt, numStr)
		if q == nil {
			fmt.Println("no such question")
			return false
		}
		ans, err := parseAnswer(q, value)
		if err != nil {
			fmt.Println(err)
			return false
		}
		if err := ctrl.RecordAnswer(ans); err != nil {
			fmt.Println(err)
			return false
		}
		fmt.Println("recorded")

	case "time":
		fmt.Println((time.Duration(ctrl.Remaining()) * time.Second).String())

	case "submit":
		if err := ctrl.Submit(ctx); err != nil {
			fmt.Println(err)
			return false
		}
		return ctrl.Submitted()

	case "quit":
		return ctrl.BackRequested()

	default:
		fmt.Println("unknown command; type \"help\"")
	}
	return false
}

func questionByNumber(attempt *model.Attempt, raw string) *model.Question {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > len(attempt.Questions) {
		return nil
	}
	return &attempt.Questions[n-1]
}

// parseAnswer interprets the typed value according to the question type.
func parseAnswer(q *model.Question, value string) (model.Answer, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return model.Answer{}, errors.New("empty answer")
	}

	switch q.Type {
	case model.QuestionTypeSingleChoice:
		id, err := strconv.Atoi(value)
		if err != nil {
			return model.Answer{}, errors.New("expected an option number")
		}
		return model.SingleChoiceAnswer(q.ID, id), nil

	case model.QuestionTypeMultipleChoice:
		parts := strings.Split(value, ",")
		ids := make([]int, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return model.Answer{}, errors.New("expected comma-separated option numbers")
			}
			ids = append(ids, id)
		}
		return model.MultipleChoiceAnswer(q.ID, ids...), nil

	default:
		return model.TextAnswer(q.ID, value), nil
	}
}

func formatAnswer(ans model.Answer) string {
	switch {
	case ans.OptionID != nil:
		return fmt.Sprintf("option %d", *ans.OptionID)
	case len(ans.OptionIDs) > 0:
		parts := make([]string, len(ans.OptionIDs))
		for i, id := range ans.OptionIDs {
			parts[i] = strconv.Itoa(id)
		}
		return "options " + strings.Join(parts, ",")
	default:
		return ans.Text
	}
}

func printResult(ctx context.Context, client *api.Client, examID uuid.UUID, ctrl *session.Controller) {
	result := ctrl.Result()
	if result == nil {
		return
	}

	// The submit response already carries the grading; refetch so the
	// printed breakdown reflects any late server-side adjustments.
	if fetched, err := client.FetchResult(ctx, examID, result.AttemptID); err == nil {
		result = fetched
	}

	fmt.Printf("\nScore: %.1f / %.1f\n", result.Score, result.MaxScore)
	for i, d := range result.Details {
		status := "wrong"
		switch {
		case d.Pending:
			status = "pending review"
		case d.Correct:
			status = "correct"
		}
		fmt.Printf("  %2d. %s (%.1f/%.1f)\n", i+1, status, d.Points, d.MaxPoints)
	}
}

type cliNotifier struct {
	lines <-chan string
}

func (n *cliNotifier) Alert(title, message string) {
	fmt.Printf("\n!! %s: %s\n", title, message)
}

func (n *cliNotifier) Confirm(title, message string) bool {
	fmt.Printf("\n%s: %s [y/N] ", title, message)
	line, ok := <-n.lines
	if !ok {
		return false
	}
	answer := strings.ToLower(line)
	return answer == "y" || answer == "yes"
}

func promptLine(stdin *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
