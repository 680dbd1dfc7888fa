package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikewrather/agent-arena/internal/models"
)

// HITLChannel moves questions out to a human and answers back in through
// files under <run>/hitl/. Answers are moved aside after ingestion, not
// deleted, so the exchange stays auditable.
type HITLChannel struct {
	dir string
}

// NewHITLChannel builds the channel for a run directory.
func NewHITLChannel(runDir string) *HITLChannel {
	return &HITLChannel{dir: filepath.Join(runDir, "hitl")}
}

// QuestionsPath returns the location humans read questions from.
func (h *HITLChannel) QuestionsPath() string {
	return filepath.Join(h.dir, "questions.json")
}

// AnswersPath returns the location humans write answers to.
func (h *HITLChannel) AnswersPath() string {
	return filepath.Join(h.dir, "answers.json")
}

type questionSet struct {
	Timestamp    string            `json:"timestamp"`
	Iteration    int               `json:"iteration"`
	Questions    []models.Question `json:"questions"`
	AnswerFormat answerSet         `json:"answer_format"`
}

type answerSet struct {
	Answers []answerEntry `json:"answers"`
}

type answerEntry struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// WriteQuestions persists the question set for the suspension.
func (h *HITLChannel) WriteQuestions(questions []models.Question, iteration int) error {
	return writeJSONAtomic(h.QuestionsPath(), questionSet{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Iteration: iteration,
		Questions: questions,
		AnswerFormat: answerSet{
			Answers: []answerEntry{{QuestionID: "q1", Answer: "your answer"}},
		},
	})
}

// ReadQuestions loads the pending question set, or nil when none exists.
func (h *HITLChannel) ReadQuestions() ([]models.Question, error) {
	data, err := os.ReadFile(h.QuestionsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var set questionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	return set.Questions, nil
}

// WriteAnswers stores an answer set for a suspended run.
func (h *HITLChannel) WriteAnswers(answers []models.Answer) error {
	set := answerSet{Answers: make([]answerEntry, 0, len(answers))}
	for _, a := range answers {
		set.Answers = append(set.Answers, answerEntry{QuestionID: a.QuestionID, Answer: a.Text})
	}
	return writeJSONAtomic(h.AnswersPath(), set)
}

// IngestAnswers consumes answers.json if present, moving it to a
// timestamped processed file. Returns nil when no answers are available.
func (h *HITLChannel) IngestAnswers() ([]models.Answer, error) {
	data, err := os.ReadFile(h.AnswersPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read answers: %w", err)
	}

	var set answerSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	if len(set.Answers) == 0 {
		return nil, nil
	}

	processed := filepath.Join(h.dir,
		fmt.Sprintf("answers_%s.processed.json", time.Now().UTC().Format("20060102T150405")))
	if err := os.Rename(h.AnswersPath(), processed); err != nil {
		return nil, fmt.Errorf("archive answers: %w", err)
	}

	answers := make([]models.Answer, 0, len(set.Answers))
	for _, entry := range set.Answers {
		answers = append(answers, models.Answer{QuestionID: entry.QuestionID, Text: entry.Answer})
	}
	return answers, nil
}

// QuestionsPending reports whether a question set is still on disk.
func (h *HITLChannel) QuestionsPending() bool {
	_, err := os.Stat(h.QuestionsPath())
	return err == nil
}

// ClearQuestions removes the question file after a resolved suspension.
func (h *HITLChannel) ClearQuestions() error {
	err := os.Remove(h.QuestionsPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear questions: %w", err)
	}
	return nil
}
