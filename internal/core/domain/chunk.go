package domain

import "unicode/utf8"

type ContentType string

const (
	ContentText         ContentType = "text"
	ContentTable        ContentType = "table"
	ContentImageCaption ContentType = "image_caption"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentTable, ContentImageCaption:
		return true
	default:
		return false
	}
}

// Chunk is an immutable fragment of a document together with its embedding.
// SequenceIndex is the chunk's position within its document; PageNumber is
// nil for sources without page structure.
type Chunk struct {
	ID            string      `json:"chunk_id"`
	DocumentID    string      `json:"document_id"`
	ContentType   ContentType `json:"content_type"`
	PageNumber    *int        `json:"page_number,omitempty"`
	SequenceIndex int         `json:"sequence_index"`
	Text          string      `json:"text"`
	Embedding     []float32   `json:"embedding"`
	CharLength    int         `json:"char_length"`
}

// Normalize fills derived fields the producer may have left empty.
func (c *Chunk) Normalize() {
	if c.ContentType == "" {
		c.ContentType = ContentText
	}
	if c.CharLength <= 0 {
		c.CharLength = utf8.RuneCountInString(c.Text)
	}
}
