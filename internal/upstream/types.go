package upstream

import "fmt"

// HistoryMessage is one earlier turn of the conversation sent with a question.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// acknowledgement is the status envelope the service puts on its responses.
// A missing success flag counts as success.
type acknowledgement struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (a *acknowledgement) rejection() (string, bool) {
	if a.Success == nil || *a.Success {
		return "", false
	}
	if a.Error != "" {
		return a.Error, true
	}
	return a.Message, true
}

// AskRequest is the payload for the ask endpoint.
type AskRequest struct {
	Question string `json:"question"`
	// SourceFilenames names the processed files the answer may draw on.
	SourceFilenames []string         `json:"sourceFilenames"`
	ProjectID       string           `json:"project_id,omitempty"`
	History         []HistoryMessage `json:"history,omitempty"`
	Provider        string           `json:"provider,omitempty"`
	Model           string           `json:"model,omitempty"`
	// APIKey is the caller's provider key, already opened. Never logged.
	APIKey string `json:"api_key,omitempty"`
}

// Source is one retrieved passage cited by an answer.
type Source struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	Relevance float64 `json:"relevance"`
}

// AskResponse is the answer to an AskRequest.
type AskResponse struct {
	acknowledgement
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// UploadResponse describes a processed upload. Documents report chunks,
// images an analysis and media a transcript.
type UploadResponse struct {
	acknowledgement
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
	Analysis   string `json:"analysis,omitempty"`
	Transcript string `json:"transcript,omitempty"`

	// LegacyChunks is the older name of Chunks. Upload folds it into Chunks.
	LegacyChunks int `json:"chunks_processed,omitempty"`
}

// FlashcardRequest asks for study cards generated from a project's content.
type FlashcardRequest struct {
	SourceFilenames []string `json:"sourceFilenames"`
	ProjectID       string   `json:"project_id,omitempty"`
	Topic           string   `json:"topic,omitempty"`
	Count           int      `json:"count,omitempty"`
	Provider        string   `json:"provider,omitempty"`
	Model           string   `json:"model,omitempty"`
	APIKey          string   `json:"api_key,omitempty"`
}

// GeneratedFlashcard is one card returned by the generator.
type GeneratedFlashcard struct {
	Front  string `json:"front"`
	Back   string `json:"back"`
	Source string `json:"source"`
}

type flashcardResponse struct {
	acknowledgement
	Flashcards []GeneratedFlashcard `json:"flashcards"`
}

// Team is a shared workspace on the upstream service.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

type teamsResponse struct {
	Teams []Team `json:"teams"`
}

type deleteResponse struct {
	acknowledgement
}

type deleteRequest struct {
	Filename string `json:"filename"`
}

type createTeamRequest struct {
	Name string `json:"name"`
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: bad status %d: %s", e.Endpoint, e.Code, e.Body)
}

// RejectedError is returned when the upstream answers 2xx with success set to false.
type RejectedError struct {
	Endpoint string
	Reason   string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: request rejected", e.Endpoint)
	}
	return fmt.Sprintf("%s: request rejected: %s", e.Endpoint, e.Reason)
}
