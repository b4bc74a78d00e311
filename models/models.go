package models

import (
	"time"
)

// Option struct represents one answer option of a question
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"correct"`
}

// Question struct represents a question of the bank. Questions are immutable once loaded.
type Question struct {
	ID           string   `json:"id"`
	QuizID       string   `json:"quiz_id"`
	SourceFolder string   `json:"source_folder,omitempty"`
	Category     string   `json:"category"`
	Prompt       string   `json:"question"`
	Options      []Option `json:"answers"`
	ImageRef     string   `json:"image,omitempty"`
}

// AnswerRecord struct is one answer as written by the extraction step
type AnswerRecord struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// QuestionRecord struct is one question as written by the extraction step.
// Both the per-folder quiz_data.json and the flat questions.json use it.
type QuestionRecord struct {
	Question     string         `json:"question"`
	Category     string         `json:"category,omitempty"`
	Answers      []AnswerRecord `json:"answers"`
	Image        *string        `json:"image,omitempty"`
	ImageSrc     *string        `json:"image_src,omitempty"`
	SourceFolder string         `json:"source_folder,omitempty"`
	QuizID       string         `json:"quiz_id,omitempty"`
}

// QuizDataFile struct is the layout of a quiz_data.json file
type QuizDataFile struct {
	ID        any              `json:"id"` // number or string, falls back to the folder name
	Questions []QuestionRecord `json:"questions"`
}

// Messages holds the user facing strings of the single supported locale
type Messages struct {
	NotAnswered    string `yaml:"not_answered" json:"not_answered"`
	EmptySelection string `yaml:"empty_selection" json:"empty_selection"`
	Correct        string `yaml:"correct" json:"correct"`
	Incorrect      string `yaml:"incorrect" json:"incorrect"`
	IntroTitle     string `yaml:"intro_title" json:"intro_title"`
	IntroBody      string `yaml:"intro_body" json:"intro_body"`
}

// BankManifest for parsing bank.yaml
type BankManifest struct {
	Title                 string   `yaml:"title"`
	FallbackCategory      string   `yaml:"fallback_category"`
	OptionCount           int      `yaml:"option_count"`
	DisplayStyleIntegrals bool     `yaml:"display_style_integrals"`
	Messages              Messages `yaml:"messages"`
}

// Bank struct is the loaded question bank and its presentation metadata
type Bank struct {
	Title      string     `json:"title"`
	Categories []string   `json:"categories"`
	Questions  []Question `json:"-"`
	Total      int        `json:"total"`
	Messages   Messages   `json:"messages"`
}

// IngestionIssue describes a malformed record found while loading the bank
type IngestionIssue struct {
	FilePath     string `json:"file_path"`
	Record       int    `json:"record"` // 1-based position inside the file
	FieldName    string `json:"field_name,omitempty"`
	ErrorMessage string `json:"error_message"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// Preferences struct holds the cosmetic choices of a viewer
type Preferences struct {
	ViewerID     string    `json:"-"`
	Theme        string    `json:"theme"`
	TextScale    float64   `json:"textSize"`
	IntroSeen    bool      `json:"welcomeClosed"`
	StatsEnabled bool      `json:"statsEnabled"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AnswerMark is an option the viewer affirmed in a submission
type AnswerMark struct {
	Index   int  `json:"index"`
	Correct bool `json:"correct"`
}

// Attempt struct is one accepted submission, as fed to the statistics recorder
type Attempt struct {
	QuestionID string       `json:"question_id"`
	Category   string       `json:"category"`
	Excerpt    string       `json:"excerpt"`
	AllCorrect bool         `json:"all_correct"`
	Affirmed   []AnswerMark `json:"affirmed"`
}

// AnswerStat counts how often one option of a question was affirmed
type AnswerStat struct {
	Index    int  `json:"index"`
	Selected int  `json:"selected"`
	Correct  bool `json:"correct"`
}

// QuestionStat for the statistics view
type QuestionStat struct {
	QuestionID  string       `json:"question_id"`
	Category    string       `json:"category"`
	Excerpt     string       `json:"excerpt"`
	Correct     int          `json:"correct"`
	Incorrect   int          `json:"incorrect"`
	AnswerStats []AnswerStat `json:"answer_stats,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CategoriesRequest replaces the selected category set
type CategoriesRequest struct {
	Categories []string `json:"categories" form:"categories"`
}

// ToggleCategoryRequest flips one category in the selection
type ToggleCategoryRequest struct {
	Category string `json:"category" form:"category" binding:"required"`
}

// JudgmentRequest records a judgment on one option
type JudgmentRequest struct {
	Position *int   `json:"position" form:"position" binding:"required"`
	Option   *int   `json:"option" form:"option" binding:"required"`
	Value    string `json:"value" form:"value" binding:"required"`
}

// SubmitRequest submits the judgments of one position
type SubmitRequest struct {
	Position *int `json:"position" form:"position" binding:"required"`
}

// JumpRequest moves to a position or to a question by ID
type JumpRequest struct {
	Position   *int   `json:"position" form:"position"`
	QuestionID string `json:"question_id" form:"question_id"`
}

// ThemeRequest for PUT /preferences/theme
type ThemeRequest struct {
	Theme string `json:"theme" form:"theme" binding:"required"`
}

// TextScaleRequest for PUT /preferences/text-scale
type TextScaleRequest struct {
	Value *float64 `json:"value" form:"value" binding:"required"`
}

// FlagRequest carries a boolean preference
type FlagRequest struct {
	Value bool `json:"value" form:"value"`
}
