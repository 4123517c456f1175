// Package ddb implements the repository interfaces on a single DynamoDB table.
// This is the only layer that knows the item layout.
package ddb

import (
	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/repository"
)

// userItem is a user as stored: PK = SK = USER#<id>, GSI1PK = EMAIL#<email>.
type userItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	GSI1PK    string `dynamodbav:"GSI1PK"`
	GSI1SK    string `dynamodbav:"GSI1SK"`
	ID        string `dynamodbav:"id"`
	Email     string `dynamodbav:"email"`
	Name      string `dynamodbav:"name"`
	Role      string `dynamodbav:"role"`
	IsActive  bool   `dynamodbav:"isActive"`
	CreatedAt string `dynamodbav:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

// emailGuardItem reserves an email address. It is written in the same
// transaction as the user item, conditional on not existing yet.
type emailGuardItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	UserID string `dynamodbav:"userId"`
}

// integrationItem is an integration as stored under its owner's partition.
type integrationItem struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	GSI1PK          string `dynamodbav:"GSI1PK"`
	GSI1SK          string `dynamodbav:"GSI1SK"`
	GSI2PK          string `dynamodbav:"GSI2PK"`
	GSI2SK          string `dynamodbav:"GSI2SK"`
	ID              string `dynamodbav:"id"`
	UserID          string `dynamodbav:"userId"`
	MarketplaceType string `dynamodbav:"marketplaceType"`
	AccessToken     string `dynamodbav:"accessToken"`
	RefreshToken    string `dynamodbav:"refreshToken,omitempty"`
	SellerID        string `dynamodbav:"sellerId,omitempty"`
	StoreName       string `dynamodbav:"storeName,omitempty"`
	Status          string `dynamodbav:"status"`
	LastSyncAt      string `dynamodbav:"lastSyncAt,omitempty"`
	ErrorMessage    string `dynamodbav:"errorMessage,omitempty"`
	CreatedAt       string `dynamodbav:"createdAt"`
	UpdatedAt       string `dynamodbav:"updatedAt"`
}

func newUserItem(u domain.User) userItem {
	return userItem{
		PK:        repository.UserKey(u.ID),
		SK:        repository.UserKey(u.ID),
		GSI1PK:    repository.EmailIndexKey(u.Email),
		GSI1SK:    repository.UserKey(u.ID),
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (i userItem) toDomain() domain.User {
	return domain.User{
		ID:        i.ID,
		Email:     i.Email,
		Name:      i.Name,
		Role:      domain.ParseRole(i.Role),
		IsActive:  i.IsActive,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func newEmailGuardItem(u domain.User) emailGuardItem {
	return emailGuardItem{
		PK:     repository.EmailIndexKey(u.Email),
		SK:     repository.EmailIndexKey(u.Email),
		UserID: u.ID,
	}
}

func newIntegrationItem(m domain.MarketplaceIntegration) integrationItem {
	return integrationItem{
		PK:              repository.UserKey(m.UserID),
		SK:              repository.IntegrationSortKey(m.MarketplaceType, m.ID),
		GSI1PK:          repository.MarketplaceIndexKey(m.MarketplaceType),
		GSI1SK:          repository.MarketplaceIndexSortKey(m.UserID, m.ID),
		GSI2PK:          repository.StatusIndexKey(m.Status),
		GSI2SK:          repository.StatusIndexSortKey(m.UserID, m.MarketplaceType, m.ID),
		ID:              m.ID,
		UserID:          m.UserID,
		MarketplaceType: string(m.MarketplaceType),
		AccessToken:     m.AccessToken,
		RefreshToken:    m.RefreshToken,
		SellerID:        m.SellerID,
		StoreName:       m.StoreName,
		Status:          string(m.Status),
		LastSyncAt:      m.LastSyncAt,
		ErrorMessage:    m.ErrorMessage,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (i integrationItem) toDomain() domain.MarketplaceIntegration {
	return domain.MarketplaceIntegration{
		ID:              i.ID,
		UserID:          i.UserID,
		MarketplaceType: domain.MarketplaceType(i.MarketplaceType),
		AccessToken:     i.AccessToken,
		RefreshToken:    i.RefreshToken,
		SellerID:        i.SellerID,
		StoreName:       i.StoreName,
		Status:          domain.IntegrationStatus(i.Status),
		LastSyncAt:      i.LastSyncAt,
		ErrorMessage:    i.ErrorMessage,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}
