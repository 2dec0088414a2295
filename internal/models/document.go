package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// 文档处理状态
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document 文档表
// 状态到达completed后除显式删除外不再变更
type Document struct {
	ID               string     `gorm:"primaryKey;size:255" json:"id"`
	WorkspaceID      string     `gorm:"size:255;not null;index" json:"workspace_id"`
	RawText          string     `gorm:"type:text" json:"-"`
	Filename         string     `gorm:"size:500;not null" json:"filename"`
	ContentType      string     `gorm:"size:100;default:'text/plain'" json:"content_type"`
	FileSize         int64      `gorm:"column:file_size;default:0" json:"file_size"`
	VultrS3Key       string     `gorm:"column:vultr_s3_key;size:500" json:"vultr_s3_key"`
	SmartbucketKey   *string    `gorm:"column:smartbucket_key;size:500" json:"smartbucket_key,omitempty"`
	UploadedBy       string     `gorm:"column:uploaded_by;size:255" json:"uploaded_by"`
	ProcessingStatus string     `gorm:"column:processing_status;size:20;default:'pending';index" json:"processing_status"`
	ChunkCount       int        `gorm:"column:chunk_count;default:0" json:"chunk_count"`
	EmbeddingCount   int        `gorm:"column:embedding_count;default:0" json:"embedding_count"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	ProcessedAt      *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

// Chunk 文本分块表
// chunk_index从0开始且在文档内连续；start/end偏移基于重组后的分块文本
type Chunk struct {
	ID              uint      `gorm:"primaryKey;column:id" json:"id"`
	DocumentID      string    `gorm:"column:document_id;size:255;not null;index" json:"document_id"`
	WorkspaceID     string    `gorm:"column:workspace_id;size:255;not null;index" json:"workspace_id"`
	ChunkIndex      int       `gorm:"column:chunk_index;not null" json:"chunk_index"`
	ChunkText       string    `gorm:"column:chunk_text;type:text;not null" json:"chunk_text"`
	TokenCount      int       `gorm:"column:token_count;default:0" json:"token_count"`
	CharCount       int       `gorm:"column:char_count;default:0" json:"char_count"`
	StartPosition   int       `gorm:"column:start_position;default:0" json:"start_position"`
	EndPosition     int       `gorm:"column:end_position;default:0" json:"end_position"`
	HasHeader       bool      `gorm:"column:has_header;default:false" json:"has_header"`
	SectionTitle    *string   `gorm:"column:section_title;size:500" json:"section_title,omitempty"`
	EmbeddingStatus string    `gorm:"column:embedding_status;size:20;default:'pending';index" json:"embedding_status"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Document Document `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Chunk) TableName() string {
	return "chunks"
}

// Embedding 向量表
// 每个chunk至多一条（chunk_id唯一约束）；向量维度恒等于模型维度
type Embedding struct {
	ID                    string          `gorm:"primaryKey;size:255" json:"id"`
	ChunkID               uint            `gorm:"column:chunk_id;not null;uniqueIndex" json:"chunk_id"`
	DocumentID            string          `gorm:"column:document_id;size:255;not null;index" json:"document_id"`
	WorkspaceID           string          `gorm:"column:workspace_id;size:255;not null;index" json:"workspace_id"`
	Embedding             pgvector.Vector `gorm:"type:vector(384);not null" json:"-"`
	ComplianceFrameworkID *int            `gorm:"column:compliance_framework_id" json:"compliance_framework_id,omitempty"`
	ComplianceTags        pq.StringArray  `gorm:"column:compliance_tags;type:text[]" json:"compliance_tags"`
	Keywords              pq.StringArray  `gorm:"column:keywords;type:text[]" json:"keywords"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Chunk Chunk `gorm:"foreignKey:ChunkID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Embedding) TableName() string {
	return "embeddings"
}
