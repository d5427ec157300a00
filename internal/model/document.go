package model

import "time"

// Document is an uploaded file whose text has been chunked into the vector store.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"size:255;not null;uniqueIndex" json:"filename"`
	FilePath   string    `gorm:"size:1024;not null" json:"-"`
	FileType   string    `gorm:"size:16;not null" json:"file_type"`
	UploadDate time.Time `gorm:"not null;index" json:"upload_date"`
	NumChunks  int       `gorm:"not null;default:0" json:"num_chunks"`
}

func (Document) TableName() string {
	return "documents"
}

// VectorKey is the identifier under which the document's chunks live in the vector store.
func (d *Document) VectorKey() string {
	return VectorKeyFor(d.Filename)
}

func VectorKeyFor(filename string) string {
	return "doc_" + filename
}
