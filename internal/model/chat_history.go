package model

import (
	"encoding/json"
	"time"
)

// ChatHistory records one answered question. Sources are stored as a JSON array.
type ChatHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Sources   string    `gorm:"type:text" json:"-"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

func (ChatHistory) TableName() string {
	return "chat_history"
}

// Source is a retrieved chunk cited in an answer.
type Source struct {
	SourceNumber   int    `json:"source_number"`
	Filename       string `json:"filename"`
	ChunkIndex     int    `json:"chunk_index"`
	ContentPreview string `json:"content_preview"`
}

// SetSources stores the sources as JSON.
func (h *ChatHistory) SetSources(sources []Source) error {
	if sources == nil {
		sources = []Source{}
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	h.Sources = string(b)
	return nil
}

// SourceList returns the decoded sources; an empty column yields an empty list.
func (h *ChatHistory) SourceList() ([]Source, error) {
	if h.Sources == "" {
		return []Source{}, nil
	}
	var sources []Source
	if err := json.Unmarshal([]byte(h.Sources), &sources); err != nil {
		return nil, err
	}
	if sources == nil {
		sources = []Source{}
	}
	return sources, nil
}

// HistoryEntry is the client view of a ChatHistory row with sources decoded.
type HistoryEntry struct {
	ID        uint      `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *ChatHistory) Entry() (HistoryEntry, error) {
	sources, err := h.SourceList()
	if err != nil {
		return HistoryEntry{}, err
	}
	return HistoryEntry{
		ID:        h.ID,
		Question:  h.Question,
		Answer:    h.Answer,
		Sources:   sources,
		Timestamp: h.Timestamp,
	}, nil
}

// ChatHistoryFromEntry is the inverse of Entry.
func ChatHistoryFromEntry(e HistoryEntry) (*ChatHistory, error) {
	h := &ChatHistory{
		ID:        e.ID,
		Question:  e.Question,
		Answer:    e.Answer,
		Timestamp: e.Timestamp,
	}
	if err := h.SetSources(e.Sources); err != nil {
		return nil, err
	}
	return h, nil
}
