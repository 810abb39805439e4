package domain

import (
	"time"

	"github.com/google/uuid"
)

// Company owns rules and receives the assignments routed on its behalf.
type Company struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	DocumentNumber string    `json:"documentNumber"`
	DocumentType   string    `json:"documentType"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// User is a reviewer reachable through a role.
type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Dud      string    `json:"dud"`
	IsActive bool      `json:"isActive"`
}

// Configuration holds a company's outbound notification settings.
type Configuration struct {
	ID              uuid.UUID `json:"id"`
	CompanyID       uuid.UUID `json:"companyId"`
	NotificationURL string    `json:"notificationUrl"`
	AuthToken       string    `json:"-"`
	IsActive        bool      `json:"isActive"`
}
