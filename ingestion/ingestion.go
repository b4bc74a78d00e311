package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"studyquiz-server/logger"
	"studyquiz-server/models"
	"studyquiz-server/quiz"
	"studyquiz-server/utils"
)

const quizDataFile = "quiz_data.json"

var ErrInvalidRecord = errors.New("invalid bank record")

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true}

// DefaultMessages are used for every message the manifest leaves empty.
var DefaultMessages = models.Messages{
	NotAnswered:    "Prosím, zodpovězte alespoň jednu otázku.",
	EmptySelection: "Vyberte alespoň jednu kategorii pro trénování.",
	Correct:        "✓ Správně!",
	Incorrect:      "✗ Zkuste to znovu příště",
	IntroTitle:     "Kvíz",
	IntroBody:      "Označte správné odpovědi pomocí tlačítek ✓ (správně), − (nevím), ✕ (špatně).",
}

// Loaded is the result of LoadBank.
type Loaded struct {
	Bank   models.Bank
	Store  *quiz.Store
	Issues []models.IngestionIssue
}

// LoadBank reads the question bank at path and the optional manifest.
//
// path is either a directory of source folders holding quiz_data.json, or a
// flat questions.json array. Malformed records are collected as issues; in
// strict mode the first one fails the load, otherwise the record is skipped.
func LoadBank(path, manifestPath string, strict bool, log *logger.Logger) (*Loaded, error) {
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat bank path %s: %w", path, err)
	}

	var c collector
	c.manifest = manifest
	if info.IsDir() {
		err = c.readDir(path, log)
	} else {
		err = c.readFlat(path)
	}
	if err != nil {
		return nil, err
	}

	for _, issue := range c.issues {
		log.Warn("Skipping malformed bank record",
			"file", issue.FilePath, "record", issue.Record, "field", issue.FieldName,
			"error", issue.ErrorMessage, "fix", issue.SuggestedFix)
	}
	if strict && len(c.issues) > 0 {
		first := c.issues[0]
		return nil, fmt.Errorf("%w: %s record %d field %q: %s (%d issues total)",
			ErrInvalidRecord, first.FilePath, first.Record, first.FieldName, first.ErrorMessage, len(c.issues))
	}

	store := quiz.NewStore(c.questions, manifest.FallbackCategory)
	if store.Len() == 0 {
		log.Warn("Question bank is empty", "path", path)
	}
	log.Info("Question bank loaded", "path", path, "questions", store.Len(), "categories", len(store.Categories()), "skipped", len(c.issues))

	return &Loaded{
		Bank: models.Bank{
			Title:      manifest.Title,
			Categories: store.Categories(),
			Questions:  store.Questions(),
			Total:      store.Len(),
			Messages:   manifest.Messages,
		},
		Store:  store,
		Issues: c.issues,
	}, nil
}

// LoadManifest parses bank.yaml. A missing file yields the defaults.
func LoadManifest(path string) (models.BankManifest, error) {
	m := models.BankManifest{
		FallbackCategory:      quiz.DefaultFallbackCategory,
		DisplayStyleIntegrals: true,
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return m, fmt.Errorf("failed to read bank manifest %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &m); err != nil {
				return m, fmt.Errorf("failed to unmarshal bank manifest %s: %w", path, err)
			}
		}
	}
	if m.OptionCount < 0 {
		return m, fmt.Errorf("%w: option_count must not be negative", ErrInvalidRecord)
	}
	if m.FallbackCategory == "" {
		m.FallbackCategory = quiz.DefaultFallbackCategory
	}
	m.Messages = withDefaults(m.Messages)
	return m, nil
}

func withDefaults(m models.Messages) models.Messages {
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&m.NotAnswered, DefaultMessages.NotAnswered)
	fill(&m.EmptySelection, DefaultMessages.EmptySelection)
	fill(&m.Correct, DefaultMessages.Correct)
	fill(&m.Incorrect, DefaultMessages.Incorrect)
	fill(&m.IntroTitle, DefaultMessages.IntroTitle)
	fill(&m.IntroBody, DefaultMessages.IntroBody)
	return m
}

type collector struct {
	manifest  models.BankManifest
	questions []models.Question
	issues    []models.IngestionIssue
	seen      map[string]bool
}

func (c *collector) issue(file string, record int, field, msg, fix string) {
	c.issues = append(c.issues, models.IngestionIssue{
		FilePath: file, Record: record, FieldName: field, ErrorMessage: msg, SuggestedFix: fix,
	})
}

func (c *collector) readDir(root string, log *logger.Logger) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read bank directory %s: %w", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		folder := e.Name()
		file := filepath.Join(root, folder, quizDataFile)
		data, err := os.ReadFile(file)
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("Folder without quiz data", "folder", folder)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		var qd models.QuizDataFile
		if err := json.Unmarshal(data, &qd); err != nil {
			c.issue(file, 0, "", fmt.Sprintf("Failed to parse JSON: %v", err), "Ensure the file is a {id, questions} object")
			continue
		}
		image, err := firstImage(filepath.Join(root, folder))
		if err != nil {
			return err
		}
		quizID := formatID(qd.ID)
		if quizID == "" {
			quizID = folder
		}
		for i, rec := range qd.Questions {
			id := quizID
			if len(qd.Questions) > 1 {
				id = fmt.Sprintf("%s#%d", quizID, i+1)
			}
			ref := utils.Deref(rec.ImageSrc)
			switch {
			case ref != "":
			case utils.Deref(rec.Image) != "":
				ref = "images/" + folder + "/" + utils.Deref(rec.Image)
			case image != "":
				ref = "images/" + folder + "/" + image
			}
			rec.SourceFolder = folder
			c.add(file, i+1, id, quizID, ref, rec)
		}
	}
	return nil
}

func (c *collector) readFlat(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	var recs []models.QuestionRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidRecord, file, err)
	}
	for i, rec := range recs {
		quizID := rec.QuizID
		if quizID == "" {
			quizID = strconv.Itoa(i + 1)
		}
		id := quizID
		if c.seen[id] {
			// several questions of one folder share a quiz_id in questions.json
			id = fmt.Sprintf("%s#%d", quizID, i+1)
		}
		ref := utils.Deref(rec.ImageSrc)
		if ref == "" {
			ref = utils.Deref(rec.Image)
		}
		c.add(file, i+1, id, quizID, ref, rec)
	}
	return nil
}

func (c *collector) add(file string, record int, id, quizID, image string, rec models.QuestionRecord) {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	switch {
	case strings.TrimSpace(rec.Question) == "":
		c.issue(file, record, "question", "Missing question text", "Every record needs a non-empty question")
		return
	case len(rec.Answers) == 0:
		c.issue(file, record, "answers", "No answers provided", "Provide the answer options with their correct flags")
		return
	case c.manifest.OptionCount > 0 && len(rec.Answers) != c.manifest.OptionCount:
		c.issue(file, record, "answers", fmt.Sprintf("Expected %d answers, got %d", c.manifest.OptionCount, len(rec.Answers)),
			"Fix the record or change option_count in the manifest")
		return
	case c.seen[id]:
		c.issue(file, record, "quiz_id", fmt.Sprintf("Duplicate question id %q", id), "Question ids must be unique within the bank")
		return
	}
	for i, a := range rec.Answers {
		if strings.TrimSpace(a.Text) == "" {
			c.issue(file, record, fmt.Sprintf("answers[%d].text", i), "Empty answer text", "Every answer option needs text")
			return
		}
	}

	q := models.Question{
		ID:           id,
		QuizID:       quizID,
		SourceFolder: rec.SourceFolder,
		Category:     strings.TrimSpace(rec.Category),
		Prompt:       c.math(rec.Question),
		ImageRef:     image,
		Options:      make([]models.Option, len(rec.Answers)),
	}
	for i, a := range rec.Answers {
		q.Options[i] = models.Option{Text: c.math(a.Text), IsCorrect: a.Correct}
	}
	c.seen[id] = true
	c.questions = append(c.questions, q)
}

func (c *collector) math(s string) string {
	if !c.manifest.DisplayStyleIntegrals {
		return s
	}
	return utils.DisplayStyleIntegrals(s)
}

// firstImage returns the name of the first image file in dir, in directory order.
func firstImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			return e.Name(), nil
		}
	}
	return "", nil
}

func formatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}
