//go:build unit || e2e

package builder

import (
	"time"

	domuser "renovecare/internal/domain/user"

	"github.com/google/uuid"
)

type UserBuilder struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         domuser.Role
	IsActive     bool
	CreatedAt    time.Time
}

func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		ID:           uuid.New(),
		Email:        "paciente@example.com",
		PasswordHash: "$2a$12$uhAjVE9f92IGYv3E25pJNetg.27lVt0p7jmLWjqjmhOg92ldPS0A.",
		Name:         "Test Patient",
		Role:         domuser.RolePatient,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
}

func (b *UserBuilder) With(mutate func(*UserBuilder)) *UserBuilder {
	mutate(b)
	return b
}

func (b *UserBuilder) WithRole(role domuser.Role) *UserBuilder {
	b.Role = role
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.Email = email
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.IsActive = false
	return b
}

func (b *UserBuilder) BuildDomain() *domuser.User {
	email, _ := domuser.NewEmail(b.Email)
	return domuser.ReconstructUser(b.ID, email, b.PasswordHash, b.Name, b.Role, b.IsActive, b.CreatedAt)
}
