package models

import "time"

type UserRole string // Роль пользователя

const (
	AdminRole     UserRole = "admin"     // Администратор системы
	OrganizerRole UserRole = "organizer" // Организатор тендеров
	SupplierRole  UserRole = "supplier"  // Поставщик
)

// User представляет пользователя системы. Пользователи никогда не удаляются.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"createdAt"`

	// Профиль поставщика, заполняется при регистрации организации.
	OrgName     string `json:"orgName,omitempty"`
	INN         string `json:"inn,omitempty"`
	OGRN        string `json:"ogrn,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ContactName string `json:"contactName,omitempty"`
}

// IsRegistered сообщает, завершил ли поставщик регистрацию организации.
func (u *User) IsRegistered() bool {
	return u.OrgName != ""
}

// SupplierProfileRequest представляет данные регистрации организации поставщика.
type SupplierProfileRequest struct {
	Username    string `json:"username"`
	OrgName     string `json:"orgName"`
	INN         string `json:"inn"`
	OGRN        string `json:"ogrn"`
	Phone       string `json:"phone"`
	ContactName string `json:"contactName"`
}
