package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one stored document. Collection and CollectionGroup are derived from Path
// so that plain and collection-group queries are both index lookups.
type Document struct {
	Path            string         `gorm:"primaryKey;type:text"`
	Collection      string         `gorm:"type:text;not null;index:idx_documents_collection"`
	CollectionGroup string         `gorm:"type:text;not null;index:idx_documents_collection_group"`
	Data            datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
