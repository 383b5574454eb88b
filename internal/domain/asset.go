package domain

import (
	"fmt"
	"time"
)

// AssetType classifies an article attachment
type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypeVideo AssetType = "video"
	AssetTypePDF   AssetType = "pdf"
	AssetTypeDoc   AssetType = "doc"
	AssetTypeOther AssetType = "other"
)

// Asset is a file attached to a knowledge article. The bytes live in object
// storage under StorageKey; the row is soft-deleted together with its article.
type Asset struct {
	ID         string
	ArticleID  string
	TenantID   string
	AssetType  AssetType
	FileName   string
	StorageKey string
	URL        string
	Size       int64
	Duration   *int
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

// ValidateAsset validates an Asset instance
func ValidateAsset(a *Asset) error {
	if a == nil {
		return fmt.Errorf("asset cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("asset ID is required")
	}

	if a.ArticleID == "" {
		return fmt.Errorf("asset ArticleID is required")
	}

	if a.TenantID == "" {
		return fmt.Errorf("asset TenantID is required")
	}

	if a.FileName == "" {
		return NewValidationError("file name is required")
	}

	if !IsValidAssetType(a.AssetType) {
		return ErrInvalidAssetType
	}

	if a.Size < 0 {
		return NewValidationError("size cannot be negative")
	}

	return nil
}

func IsValidAssetType(t AssetType) bool {
	switch t {
	case AssetTypeImage, AssetTypeVideo, AssetTypePDF, AssetTypeDoc, AssetTypeOther:
		return true
	}
	return false
}
