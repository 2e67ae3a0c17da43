package models

// DocumentChunk is one chunk of a context file ingested into the
// grounding store (spec.md §3, §4.4). (Filename, ContentHash) uniquely
// identifies an ingested file; re-uploading identical bytes is a no-op
// that returns the existing DocumentID (invariant 6 in spec.md §8).
type DocumentChunk struct {
	ChunkID     uint   `gorm:"primaryKey" json:"chunkId"`
	DocumentID  string `gorm:"index;size:64;not null" json:"documentId"`
	Filename    string `gorm:"size:512;not null;index:idx_file_hash,priority:1" json:"filename"`
	ChunkIndex  int    `gorm:"not null" json:"chunkIndex"`
	Content     string `gorm:"type:text;not null" json:"content"`
	ContentHash string `gorm:"size:32;not null;index:idx_file_hash,priority:2" json:"contentHash"`
}

func (DocumentChunk) TableName() string { return "document_chunks" }
