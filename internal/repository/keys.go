package repository

import (
	"fmt"

	"github.com/LsSens/backend-erp/internal/domain"
)

// Key prefixes of the single-table layout.
const (
	UserPrefix        = "USER#"
	EmailPrefix       = "EMAIL#"
	MarketplacePrefix = "MARKETPLACE#"
	StatusPrefix      = "STATUS#"
)

// UserKey is both the partition and the sort key of a user item.
func UserKey(id string) string {
	return UserPrefix + id
}

// EmailIndexKey is the GSI1 partition key of a user item.
func EmailIndexKey(email string) string {
	return EmailPrefix + email
}

// IntegrationSortKey is the sort key of an integration under its owner's partition.
func IntegrationSortKey(marketplaceType domain.MarketplaceType, id string) string {
	return fmt.Sprintf("%s%s#%s", MarketplacePrefix, marketplaceType, id)
}

// IntegrationTypePrefix matches every integration of one type under an owner.
func IntegrationTypePrefix(marketplaceType domain.MarketplaceType) string {
	return fmt.Sprintf("%s%s#", MarketplacePrefix, marketplaceType)
}

// MarketplaceIndexKey is the GSI1 partition key of an integration.
func MarketplaceIndexKey(marketplaceType domain.MarketplaceType) string {
	return MarketplacePrefix + string(marketplaceType)
}

// MarketplaceIndexSortKey is the GSI1 sort key of an integration.
func MarketplaceIndexSortKey(userID, id string) string {
	return fmt.Sprintf("%s%s#%s", UserPrefix, userID, id)
}

// StatusIndexKey is the GSI2 partition key of an integration in the given status.
func StatusIndexKey(status domain.IntegrationStatus) string {
	return StatusPrefix + string(status)
}

// StatusIndexSortKey is the GSI2 sort key of an integration.
func StatusIndexSortKey(userID string, marketplaceType domain.MarketplaceType, id string) string {
	return fmt.Sprintf("%s%s#%s#%s", UserPrefix, userID, marketplaceType, id)
}
