package auth

import (
	"errors"
	"fmt"
	"strings"

	"pulse/internal/apperr"
	"pulse/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLen = 6

// Users — аккаунты владельцев каналов.
type Users struct{ db *gorm.DB }

func NewUsers(db *gorm.DB) *Users { return &Users{db: db} }

func (u *Users) Register(name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", apperr.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperr.ErrValidation, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	usr := &models.User{
		UUID:         uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := u.db.Create(usr).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", apperr.ErrValidation)
		}
		return nil, err
	}
	return usr, nil
}

// Authenticate — проверка логина/пароля. Неверный email и неверный пароль
// снаружи неразличимы.
func (u *Users) Authenticate(email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var usr models.User
	if err := u.db.Where("email = ?", email).First(&usr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrValidation)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrValidation)
	}
	return &usr, nil
}

func (u *Users) GetByUUID(id string) (*models.User, error) {
	var usr models.User
	if err := u.db.Where("uuid = ?", id).First(&usr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &usr, nil
}

func (u *Users) UpdateProfile(id, name, email string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", apperr.ErrValidation)
	}
	err := u.db.Model(&models.User{}).Where("uuid = ?", id).
		Updates(map[string]any{"name": name, "email": email}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email is already in use", apperr.ErrValidation)
		}
		return nil, err
	}
	return u.GetByUUID(id)
}

func (u *Users) ChangePassword(id, current, next string) error {
	if len(next) < minPasswordLen {
		return fmt.Errorf("%w: new password must be at least %d characters", apperr.ErrValidation, minPasswordLen)
	}
	usr, err := u.GetByUUID(id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(current)) != nil {
		return fmt.Errorf("%w: current password is incorrect", apperr.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return u.db.Model(&models.User{}).Where("uuid = ?", id).
		Update("password_hash", string(hash)).Error
}
